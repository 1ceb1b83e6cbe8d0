package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/observability"
)

// Outcome is the final state of one delivery.
type Outcome string

const (
	OutcomePrimary  Outcome = "primary"
	OutcomeFallback Outcome = "fallback"
	OutcomeQueued   Outcome = "queued"
	OutcomeDropped  Outcome = "dropped"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	maxTrackedStatuses = 4096
)

var errNoChannel = errors.New("no notification channel configured")

// DeliveryStatus tracks the latest delivery state of a notification.
type DeliveryStatus struct {
	NotificationID string
	Attempts       int
	Outcome        Outcome
	LastError      string
	LastAttempt    time.Time
	NextAttempt    time.Time
}

// DispatcherOptions configures Dispatcher behavior.
type DispatcherOptions struct {
	Primary     Channel
	Fallback    Channel
	Queue       RetryQueue
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	Now         func() time.Time
	NewID       func() string
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// Dispatcher sends notifications and owns their retry policy.
type Dispatcher struct {
	primary     Channel
	fallback    Channel
	queue       RetryQueue
	maxAttempts int
	backoff     func(attempt int) time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
	newID       func() string
	logger      *zap.Logger
	metrics     *observability.Metrics

	mu          sync.RWMutex
	statuses    map[string]*DeliveryStatus
	maxStatuses int
}

// NewDispatcher creates a Dispatcher with defaults: 3 attempts, waits of
// 1s, 2s, 4s.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	backoff := opts.Backoff
	if backoff == nil {
		backoff = ExponentialBackoff(baseDelay)
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		primary:     opts.Primary,
		fallback:    opts.Fallback,
		queue:       opts.Queue,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleep,
		now:         now,
		newID:       newID,
		logger:      logger,
		metrics:     opts.Metrics,
		statuses:    make(map[string]*DeliveryStatus),
		maxStatuses: maxTrackedStatuses,
	}
}

// ExponentialBackoff waits base * 2^(attempt-1) before attempt.
func ExponentialBackoff(base time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

// Deliver sends n once through the primary and then the fallback channel.
// When both fail n is queued for retry. The returned error is non-nil only
// when the notification was dropped.
func (d *Dispatcher) Deliver(ctx context.Context, n domain.Notification) (*DeliveryStatus, error) {
	n = d.prepare(n)
	status := &DeliveryStatus{NotificationID: n.ID, Attempts: 1, LastAttempt: d.now()}

	outcome, err := d.sendOnce(ctx, n)
	if err == nil {
		status.Outcome = outcome
		d.finish(status)
		return d.copyStatus(status), nil
	}
	status.LastError = err.Error()

	if d.queue == nil {
		return d.drop(status, n, err)
	}
	if qerr := d.queue.Enqueue(ctx, n); qerr != nil {
		return d.drop(status, n, errors.Join(err, qerr))
	}
	status.Outcome = OutcomeQueued
	status.NextAttempt = status.LastAttempt.Add(d.backoff(1))
	d.logger.Warn("notification queued for retry",
		zap.String("notification_id", n.ID),
		zap.String("recipient_id", n.RecipientID),
		zap.Error(err))
	d.finish(status)
	return d.copyStatus(status), nil
}

// Retry runs the retry schedule for a queued notification: up to the
// configured attempts, each preceded by its backoff wait.
func (d *Dispatcher) Retry(ctx context.Context, n domain.Notification) (*DeliveryStatus, error) {
	status := &DeliveryStatus{NotificationID: n.ID, Outcome: OutcomeQueued}
	if existing, ok := d.Status(n.ID); ok {
		status.Attempts = existing.Attempts
	}

	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		wait := d.backoff(attempt)
		if wait < 0 {
			wait = 0
		}
		status.NextAttempt = d.now().Add(wait)
		d.setStatus(status)
		if err := d.sleep(ctx, wait); err != nil {
			return d.drop(status, n, err)
		}

		status.Attempts++
		status.LastAttempt = d.now()
		outcome, err := d.sendOnce(ctx, n)
		if err == nil {
			status.Outcome = outcome
			status.LastError = ""
			status.NextAttempt = time.Time{}
			d.finish(status)
			return d.copyStatus(status), nil
		}
		lastErr = err
		status.LastError = err.Error()
		d.logger.Warn("notification retry failed",
			zap.String("notification_id", n.ID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.maxAttempts),
			zap.Error(err))
	}
	return d.drop(status, n, lastErr)
}

// Status returns the latest delivery status for a notification.
func (d *Dispatcher) Status(id string) (*DeliveryStatus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	status, ok := d.statuses[id]
	if !ok {
		return nil, false
	}
	return d.copyStatus(status), true
}

// Queue exposes the retry queue for the retry worker.
func (d *Dispatcher) Queue() RetryQueue {
	return d.queue
}

func (d *Dispatcher) prepare(n domain.Notification) domain.Notification {
	if strings.TrimSpace(n.ID) == "" {
		n.ID = d.newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	if n.Metadata.ComplaintID == "" {
		n.Metadata.ComplaintID = n.RelatedID
	}
	return n
}

func (d *Dispatcher) sendOnce(ctx context.Context, n domain.Notification) (Outcome, error) {
	if d.primary == nil && d.fallback == nil {
		return "", errNoChannel
	}
	var errs []error
	if d.primary != nil {
		err := d.primary.Send(ctx, n)
		if err == nil {
			return OutcomePrimary, nil
		}
		errs = append(errs, err)
		d.logger.Debug("primary notification channel failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
	if d.fallback != nil {
		err := d.fallback.Send(ctx, n)
		if err == nil {
			return OutcomeFallback, nil
		}
		errs = append(errs, err)
	}
	return "", errors.Join(errs...)
}

func (d *Dispatcher) drop(status *DeliveryStatus, n domain.Notification, err error) (*DeliveryStatus, error) {
	status.Outcome = OutcomeDropped
	status.NextAttempt = time.Time{}
	if err != nil {
		status.LastError = err.Error()
	}
	d.logger.Error("notification dropped",
		zap.String("notification_id", n.ID),
		zap.String("recipient_id", n.RecipientID),
		zap.String("type", string(n.Type)),
		zap.Int("attempts", status.Attempts),
		zap.Error(err))
	d.finish(status)
	return d.copyStatus(status), err
}

func (d *Dispatcher) finish(status *DeliveryStatus) {
	d.metrics.RecordDelivery(string(status.Outcome))
	d.setStatus(status)
}

func (d *Dispatcher) setStatus(status *DeliveryStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, tracked := d.statuses[status.NotificationID]; !tracked && len(d.statuses) >= d.maxStatuses {
		d.evictLocked()
	}
	d.statuses[status.NotificationID] = d.copyStatus(status)
}

// evictLocked removes one settled status, or the oldest queued one when every
// tracked status is still queued.
func (d *Dispatcher) evictLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, s := range d.statuses {
		if s.Outcome != OutcomeQueued {
			delete(d.statuses, id)
			return
		}
		if oldestID == "" || s.LastAttempt.Before(oldest) || (s.LastAttempt.Equal(oldest) && id < oldestID) {
			oldestID, oldest = id, s.LastAttempt
		}
	}
	if oldestID != "" {
		delete(d.statuses, oldestID)
	}
}

func (d *Dispatcher) copyStatus(status *DeliveryStatus) *DeliveryStatus {
	if status == nil {
		return nil
	}
	out := *status
	return &out
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
