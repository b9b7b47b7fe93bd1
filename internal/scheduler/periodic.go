package scheduler

import (
	"fmt"
	"time"

	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// NewPeriodic builds an asynq scheduler that enqueues a cycle run on the
// configured cron expression. The engine itself has no internal timer; this
// is the external cadence collaborator for deployments that want one.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*asynq.Scheduler, error) {
	cron := cfg.GetCycleCron()
	if cron == "" {
		return nil, nil
	}

	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	sched := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	task, err := NewCycleRunTask(CycleRunPayload{
		Trigger:     "cron",
		RequestedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := sched.Register(cron, task, asynq.Queue(queue)); err != nil {
		return nil, err
	}

	log.Info("periodic cycle trigger registered", "cron", cron)
	return sched, nil
}
