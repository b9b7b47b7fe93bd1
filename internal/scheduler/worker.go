package scheduler

import (
	"context"
	"fmt"

	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// CycleRunner runs one dialer cycle; a run while another is in flight is a no-op.
type CycleRunner interface {
	Start(ctx context.Context)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	runner CycleRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, runner CycleRunner, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		runner: runner,
		log:    log,
	}

	mux.HandleFunc(TaskDialerCycleRun, w.handleCycleRun)

	return w, nil
}

func (w *Worker) handleCycleRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCycleRunPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("dialer cycle triggered", "trigger", payload.Trigger, "requestedAt", payload.RequestedAt)
	w.runner.Start(ctx)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
