package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"plant-care/internal/logger"
	"plant-care/internal/model"
	"plant-care/internal/repository"
	"plant-care/internal/telemetry"
)

// Engine is the single entry surface of the care engine. Every call is
// serialized through the work queue, so callers from cron, HTTP and Telegram
// may invoke it concurrently.
type Engine struct {
	queue     *Queue
	plantRepo *repository.PlantRepository
	schedules *repository.ScheduleRepository
	prefs     Preferences
	notifier  Notifier
	alarm     *AlarmService
	reminders *ReminderService
	actions   *ActionService
	reconcile *ReconcileService
	metrics   *telemetry.CareMetrics
}

// EngineDeps wires the engine to its collaborators.
type EngineDeps struct {
	Queue     *Queue
	Plants    *repository.PlantRepository
	Schedules *repository.ScheduleRepository
	Prefs     Preferences
	Notifier  Notifier
	Waker     Waker
	Location  *time.Location
	Clock     Clock
	Metrics   *telemetry.CareMetrics
}

func NewEngine(deps EngineDeps) *Engine {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier()
	}
	alarm := NewAlarmService(deps.Waker, deps.Prefs, deps.Location, deps.Clock)
	e := &Engine{
		queue:     deps.Queue,
		plantRepo: deps.Plants,
		schedules: deps.Schedules,
		prefs:     deps.Prefs,
		notifier:  notifier,
		alarm:     alarm,
		reminders: NewReminderService(deps.Schedules, deps.Plants, notifier, alarm, deps.Prefs, deps.Location, deps.Clock),
		actions:   NewActionService(deps.Schedules, notifier, alarm, deps.Clock),
		reconcile: NewReconcileService(deps.Schedules, deps.Plants, alarm, deps.Clock),
		metrics:   deps.Metrics,
	}
	alarm.OnFire(e.onWake)
	return e
}

func (e *Engine) onWake() {
	if _, err := e.HandleDailyTrigger(context.Background()); err != nil {
		logger.Error("daily trigger failed", "error", err)
	}
}

func (e *Engine) run(ctx context.Context, name string, job Job, attrs ...attribute.KeyValue) error {
	return e.queue.Do(ctx, name, func(ctx context.Context) error {
		ctx, span := telemetry.StartJobSpan(ctx, name, attrs...)
		err := job(ctx)
		telemetry.EndSpan(span, err)
		return err
	})
}

// HandleDailyTrigger is the timer entry point.
func (e *Engine) HandleDailyTrigger(ctx context.Context) (TriggerResult, error) {
	return e.trigger(ctx, "daily")
}

// HandleBoot restores the wakeup and the due notifications after a restart.
func (e *Engine) HandleBoot(ctx context.Context) (TriggerResult, error) {
	var result TriggerResult
	err := e.run(ctx, "boot", func(ctx context.Context) error {
		e.alarm.RescheduleAllAlarms(ctx)
		start := time.Now()
		var err error
		result, err = e.reminders.RestoreNotifications(ctx)
		e.metrics.RecordTrigger(ctx, "boot", triggerOutcome(result, err), result.Posted, time.Since(start))
		return err
	})
	return result, err
}

func (e *Engine) trigger(ctx context.Context, entrypoint string) (TriggerResult, error) {
	var result TriggerResult
	err := e.run(ctx, "trigger", func(ctx context.Context) error {
		start := time.Now()
		var err error
		result, err = e.reminders.RunDailyTrigger(ctx)
		e.metrics.RecordTrigger(ctx, entrypoint, triggerOutcome(result, err), result.Posted, time.Since(start))
		return err
	}, attribute.String("entrypoint", entrypoint))
	if err != nil {
		logger.Warn("care trigger failed", "entrypoint", entrypoint, "error", err)
	}
	return result, err
}

func triggerOutcome(result TriggerResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result.Paused:
		return "paused"
	case result.Due == 0:
		return "empty"
	default:
		return "posted"
	}
}

func (e *Engine) CreateSchedulesFromRecommendations(ctx context.Context, plantID string, recs []Recommendation) (ReconcileResult, error) {
	var result ReconcileResult
	err := e.run(ctx, "reconcile", func(ctx context.Context) error {
		var err error
		result, err = e.reconcile.CreateSchedulesFromRecommendations(ctx, plantID, recs)
		return err
	}, attribute.String("plant.id", plantID), attribute.Int("recommendations", len(recs)))

	e.metrics.RecordReconcileItem(ctx, "created", len(result.Created))
	e.metrics.RecordReconcileItem(ctx, "updated", len(result.Updated))
	e.metrics.RecordReconcileItem(ctx, "needs_confirmation", len(result.NeedsConfirmation))
	e.metrics.RecordReconcileItem(ctx, "failed", len(result.Failures))
	return result, err
}

func (e *Engine) MarkComplete(ctx context.Context, scheduleID string, source model.CompletionSource) error {
	err := e.run(ctx, "mark_complete", func(ctx context.Context) error {
		return e.actions.MarkComplete(ctx, scheduleID, source)
	}, attribute.String("schedule.id", scheduleID), attribute.String("source", string(source)))
	e.metrics.RecordAction(ctx, "mark_complete", err)
	return err
}

func (e *Engine) Snooze(ctx context.Context, scheduleID string, option SnoozeOption) error {
	err := e.run(ctx, "snooze", func(ctx context.Context) error {
		return e.actions.Snooze(ctx, scheduleID, option)
	}, attribute.String("schedule.id", scheduleID), attribute.Int("option", int(option)))
	e.metrics.RecordAction(ctx, "snooze", err)
	return err
}

func (e *Engine) ToggleRemindersForPlant(ctx context.Context, plantID string, enabled bool) error {
	err := e.run(ctx, "toggle_reminders", func(ctx context.Context) error {
		return e.actions.ToggleRemindersForPlant(ctx, plantID, enabled)
	}, attribute.String("plant.id", plantID), attribute.Bool("enabled", enabled))
	e.metrics.RecordAction(ctx, "toggle_reminders", err)
	return err
}

func (e *Engine) UpdateScheduleFrequency(ctx context.Context, scheduleID string, days int) error {
	err := e.run(ctx, "update_frequency", func(ctx context.Context) error {
		return e.actions.UpdateScheduleFrequency(ctx, scheduleID, days)
	}, attribute.String("schedule.id", scheduleID), attribute.Int("frequency_days", days))
	e.metrics.RecordAction(ctx, "update_frequency", err)
	return err
}

func (e *Engine) ResolveRecommendation(ctx context.Context, scheduleID string, accept bool) error {
	err := e.run(ctx, "resolve_recommendation", func(ctx context.Context) error {
		return e.actions.ResolveRecommendation(ctx, scheduleID, accept)
	}, attribute.String("schedule.id", scheduleID), attribute.Bool("accept", accept))
	e.metrics.RecordAction(ctx, "resolve_recommendation", err)
	return err
}

func (e *Engine) ListCompletions(ctx context.Context, scheduleID string) ([]model.CareCompletion, error) {
	var completions []model.CareCompletion
	err := e.run(ctx, "list_completions", func(ctx context.Context) error {
		var err error
		completions, err = e.actions.ListCompletions(ctx, scheduleID)
		return err
	})
	return completions, err
}

// DueNow returns what the daily trigger would post right now. Rolling
// completed schedules forward writes, so it runs on the queue too.
func (e *Engine) DueNow(ctx context.Context) ([]DueItem, error) {
	var items []DueItem
	err := e.run(ctx, "due_now", func(ctx context.Context) error {
		var err error
		items, err = e.reminders.DueItems(ctx, e.reminders.clock.now())
		return err
	})
	return items, err
}

// DueBatch renders the current due set the way the daily trigger would.
func (e *Engine) DueBatch(ctx context.Context) (Batch, error) {
	items, err := e.DueNow(ctx)
	if err != nil {
		return Batch{}, err
	}
	return BuildBatch(items, e.reminders.clock.now(), e.reminders.loc), nil
}

func (e *Engine) PauseReminders(ctx context.Context) error {
	return e.setPaused(ctx, true)
}

func (e *Engine) ResumeReminders(ctx context.Context) error {
	return e.setPaused(ctx, false)
}

func (e *Engine) setPaused(ctx context.Context, paused bool) error {
	return e.run(ctx, "set_paused", func(ctx context.Context) error {
		if err := e.prefs.SetRemindersPaused(ctx, paused); err != nil {
			return fmt.Errorf("save paused flag: %w", err)
		}
		e.alarm.ScheduleNextAlarm(ctx)
		logger.Info("reminders paused flag changed", "paused", paused)
		return nil
	}, attribute.Bool("paused", paused))
}

// SetReminderTime stores the HH:MM of the daily wakeup and re-arms it.
func (e *Engine) SetReminderTime(ctx context.Context, raw string) (time.Time, error) {
	clock, err := model.ParseClockTime(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidReminderTime, err)
	}
	var next time.Time
	err = e.run(ctx, "set_reminder_time", func(ctx context.Context) error {
		if err := e.prefs.SetReminderTime(ctx, clock); err != nil {
			return fmt.Errorf("save reminder time: %w", err)
		}
		next, _ = e.alarm.ScheduleNextAlarm(ctx)
		logger.Info("reminder time changed", "time", clock.String(), "next", next)
		return nil
	}, attribute.String("time", clock.String()))
	return next, err
}

// Preferences returns the paused flag and the daily reminder time.
func (e *Engine) Preferences(ctx context.Context) (paused bool, at model.ClockTime, err error) {
	if paused, err = e.prefs.RemindersPaused(ctx); err != nil {
		return false, at, fmt.Errorf("read paused flag: %w", err)
	}
	if at, err = e.prefs.ReminderTime(ctx); err != nil {
		return paused, at, fmt.Errorf("read reminder time: %w", err)
	}
	return paused, at, nil
}

// Plant management for the UI surfaces.

func (e *Engine) CreatePlant(ctx context.Context, name, species string) (*model.Plant, error) {
	plant := &model.Plant{Name: name, Species: species}
	err := e.run(ctx, "create_plant", func(ctx context.Context) error {
		return e.plantRepo.Create(ctx, plant)
	})
	if err != nil {
		return nil, err
	}
	return plant, nil
}

func (e *Engine) ListPlants(ctx context.Context) ([]model.Plant, error) {
	return e.plantRepo.List(ctx)
}

func (e *Engine) GetPlant(ctx context.Context, plantID string) (*model.Plant, error) {
	plant, err := e.plantRepo.GetByID(ctx, plantID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPlantNotFound
	}
	return plant, err
}

func (e *Engine) SchedulesForPlant(ctx context.Context, plantID string) ([]model.CareSchedule, error) {
	return e.schedules.GetSchedulesByPlant(ctx, plantID)
}

// DeletePlant removes a plant with its schedules and history, and clears its entries.
func (e *Engine) DeletePlant(ctx context.Context, plantID string) error {
	return e.run(ctx, "delete_plant", func(ctx context.Context) error {
		schedules, err := e.schedules.GetSchedulesByPlant(ctx, plantID)
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		if err := e.plantRepo.Delete(ctx, plantID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPlantNotFound
			}
			return err
		}
		for _, schedule := range schedules {
			if err := e.notifier.Dismiss(ctx, schedule.ID); err != nil {
				logger.Warn("dismiss notification entry", "schedule", schedule.ID, "error", err)
			}
		}
		e.alarm.ScheduleNextAlarm(ctx)
		logger.Info("plant deleted", "plant", plantID, "schedules", len(schedules))
		return nil
	}, attribute.String("plant.id", plantID))
}

// NextAlarm is the pending daily wakeup, if any.
func (e *Engine) NextAlarm() (time.Time, bool) {
	if next, ok := e.alarm.waker.(interface{ Next(string) (time.Time, bool) }); ok {
		return next.Next(DailyReminderKey)
	}
	return time.Time{}, false
}
