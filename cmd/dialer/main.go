package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dialer_backend/internal/dialer"
	"dialer_backend/internal/notify"
	"dialer_backend/internal/scheduler"
	"dialer_backend/platform/config"
	"dialer_backend/platform/db"
	"dialer_backend/platform/logger"
	"dialer_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting dialer worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	val := validator.New()

	dialerModule := dialer.NewModule(pool, val, cfg, log)

	if alerter := notify.New(cfg, log); alerter != nil {
		dialerModule.SetAlerter(alerter)
	}

	if cycleClient, err := scheduler.NewClient(cfg); err != nil {
		log.Warn("cycle scheduler client unavailable; follow-up runs will not be queued", "error", err)
	} else {
		defer func() { _ = cycleClient.Close() }()
		dialerModule.SetCycleScheduler(cycleClient)
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic cycle scheduler", "error", err)
		panic("failed to initialize periodic cycle scheduler: " + err.Error())
	}
	if periodic != nil {
		go func() {
			if err := periodic.Run(); err != nil {
				log.Error("periodic cycle scheduler stopped", "error", err)
			}
		}()
		defer periodic.Shutdown()
	}

	worker, err := scheduler.NewWorker(cfg, dialerModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize dialer worker", "error", err)
		panic("failed to initialize dialer worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
