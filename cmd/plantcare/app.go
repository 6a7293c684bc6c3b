package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"plant-care/internal/config"
	"plant-care/internal/logger"
	"plant-care/internal/repository"
	"plant-care/internal/service"
	"plant-care/internal/telemetry"
)

// app holds the storage side of the process and the running engine.
type app struct {
	cfg         config.Config
	db          *gorm.DB
	redis       *redis.Client
	plants      *repository.PlantRepository
	schedules   *repository.ScheduleRepository
	subscribers *repository.SubscriberRepository
	prefs       service.Preferences
	metrics     *telemetry.CareMetrics

	stopQueue func()
}

func openApp(cfg config.Config) (*app, error) {
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}

	a := &app{
		cfg:         cfg,
		db:          db,
		plants:      repository.NewPlantRepository(db),
		schedules:   repository.NewScheduleRepository(db),
		subscribers: repository.NewSubscriberRepository(db),
	}

	defaults := repository.PreferenceDefaults{
		RemindersPaused: cfg.RemindersPaused,
		ReminderTime:    cfg.ReminderTime,
	}
	switch cfg.PreferencesBackend {
	case config.BackendRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.prefs = repository.NewRedisPreferenceRepository(a.redis, defaults)
	default:
		a.prefs = repository.NewPreferenceRepository(db, defaults)
	}

	metrics, err := telemetry.NewCareMetrics()
	if err != nil {
		logger.Warn("care metrics disabled", "error", err)
	}
	a.metrics = metrics
	return a, nil
}

// startEngine runs the work queue in the background and builds the engine on it.
func (a *app) startEngine(notifier service.Notifier, waker service.Waker) *service.Engine {
	queue := service.NewQueue(64)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := queue.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("work queue stopped", "error", err)
		}
	}()
	a.stopQueue = func() {
		cancel()
		<-done
	}

	return service.NewEngine(service.EngineDeps{
		Queue:     queue,
		Plants:    a.plants,
		Schedules: a.schedules,
		Prefs:     a.prefs,
		Notifier:  notifier,
		Waker:     waker,
		Location:  a.cfg.Location,
		Metrics:   a.metrics,
	})
}

func (a *app) Close() {
	if a.stopQueue != nil {
		a.stopQueue()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
