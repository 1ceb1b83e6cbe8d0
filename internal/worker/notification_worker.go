package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/notify"
)

const (
	defaultRetryConcurrency = 1
	dequeueErrorPause       = time.Second
)

// Retrier runs the retry schedule for one queued notification.
type Retrier interface {
	Retry(ctx context.Context, n domain.Notification) (*notify.DeliveryStatus, error)
}

// RetryWorkerConfig tunes the retry worker.
type RetryWorkerConfig struct {
	Concurrency int
}

// RetryWorker drains the notification retry queue.
type RetryWorker struct {
	queue   notify.RetryQueue
	retrier Retrier
	cfg     RetryWorkerConfig
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetryWorker builds a worker reading from queue.
func NewRetryWorker(queue notify.RetryQueue, retrier Retrier, cfg RetryWorkerConfig, logger *zap.Logger) *RetryWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultRetryConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryWorker{
		queue:   queue,
		retrier: retrier,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepWithContext,
	}
}

// Run blocks until ctx is cancelled. Each of the configured loops takes one
// notification at a time and runs its full retry schedule.
func (w *RetryWorker) Run(ctx context.Context) error {
	if w == nil || w.queue == nil || w.retrier == nil {
		return errors.New("retry worker is not configured")
	}
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			w.loop(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (w *RetryWorker) loop(ctx context.Context) {
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warn("retry queue read failed", zap.Error(err))
			if err := w.sleep(ctx, dequeueErrorPause); err != nil {
				return
			}
		}
	}
}

// RunOnce takes one notification off the queue and retries it. A dropped
// notification is not an error of the worker.
func (w *RetryWorker) RunOnce(ctx context.Context) (*notify.DeliveryStatus, error) {
	n, err := w.queue.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	status, err := w.retrier.Retry(ctx, n)
	if err != nil {
		w.logger.Debug("queued notification dropped",
			zap.String("notification_id", n.ID),
			zap.Error(err))
	}
	return status, nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
