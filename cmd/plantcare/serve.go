package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"plant-care/internal/api"
	"plant-care/internal/bot"
	"plant-care/internal/logger"
	"plant-care/internal/service"
	"plant-care/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder engine with the HTTP API and the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:  "plant-care",
		Version:      version,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("flush telemetry", "error", err)
		}
	}()

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := service.NewSchedulerService(cfg.Location)
	scheduler.Start()
	defer scheduler.Stop()

	var (
		engine   *service.Engine
		telegram *bot.Bot
	)
	if cfg.TelegramEnabled() {
		tg, err := bot.NewAPI(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifier := bot.NewNotifier(tg, a.subscribers)
		engine = a.startEngine(notifier, scheduler)
		telegram = bot.New(tg, engine, a.subscribers, notifier, cfg.Location)
	} else {
		logger.Warn("TELEGRAM_TOKEN is not set, care batches go to the log")
		engine = a.startEngine(service.NewLogNotifier(), scheduler)
	}

	if result, err := engine.HandleBoot(ctx); err != nil {
		logger.Error("restore reminders after start", "error", err)
	} else {
		logger.Info("reminders restored", "due", result.Due, "posted", result.Posted, "paused", result.Paused)
	}
	if next, ok := engine.NextAlarm(); ok {
		logger.Info("next daily reminder", "at", next.In(cfg.Location))
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(api.Deps{Engine: engine, Token: cfg.APIToken, Location: cfg.Location}),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if telegram != nil {
		g.Go(func() error {
			return telegram.Start(gctx)
		})
	}

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}
