package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-workflow/internal/domain"
	"github.com/spec-kit/complaint-workflow/internal/service"
	apperrors "github.com/spec-kit/complaint-workflow/pkg/util/errorutil"
)

const (
	defaultPollBase = 60 * time.Second
	defaultPollMax  = 5 * time.Minute
)

// InboxSource refreshes the inbox of one session.
type InboxSource interface {
	Inbox(ctx context.Context, sess domain.Session) (*service.InboxSnapshot, error)
}

// PollerConfig tunes the refresh cadence.
type PollerConfig struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.BaseInterval <= 0 {
		c.BaseInterval = defaultPollBase
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = defaultPollMax
	}
	if c.MaxInterval < c.BaseInterval {
		c.MaxInterval = c.BaseInterval
	}
	return c
}

// NextInterval doubles the wait after a failure up to the cap and returns to
// the base after a success.
func (c PollerConfig) NextInterval(current time.Duration, failed bool) time.Duration {
	if !failed {
		return c.BaseInterval
	}
	if current < c.BaseInterval {
		current = c.BaseInterval
	}
	next := current * 2
	if next > c.MaxInterval {
		next = c.MaxInterval
	}
	return next
}

// Poller keeps the latest inbox snapshot of one session fresh.
type Poller struct {
	session domain.Session
	source  InboxSource
	cfg     PollerConfig
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error

	mu       sync.RWMutex
	snapshot *service.InboxSnapshot
	lastErr  error
	interval time.Duration
	failures int
}

// NewPoller creates a poller for sess.
func NewPoller(sess domain.Session, source InboxSource, cfg PollerConfig, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Poller{
		session:  sess,
		source:   source,
		cfg:      cfg,
		logger:   logger,
		sleep:    sleepWithContext,
		interval: cfg.BaseInterval,
	}
}

// Run polls immediately and then after every interval until ctx ends or the
// backend rejects the session's credentials.
func (p *Poller) Run(ctx context.Context) {
	for {
		wait := p.PollOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(p.Err(), apperrors.ErrUnauthorized) {
			p.logger.Info("inbox poller stopped; session credentials rejected",
				zap.String("session_id", sessionKey(p.session)))
			return
		}
		if err := p.sleep(ctx, wait); err != nil {
			return
		}
	}
}

// PollOnce refreshes the snapshot and returns the wait before the next poll.
func (p *Poller) PollOnce(ctx context.Context) time.Duration {
	snapshot, err := p.source.Inbox(ctx, p.session)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = p.cfg.NextInterval(p.interval, err != nil)
	if err != nil {
		p.lastErr = err
		p.failures++
		if ctx.Err() == nil {
			p.logger.Warn("inbox poll failed",
				zap.String("session_id", sessionKey(p.session)),
				zap.Int("consecutive_failures", p.failures),
				zap.Duration("next_poll", p.interval),
				zap.Error(err))
		}
		return p.interval
	}
	p.snapshot = snapshot
	p.lastErr = nil
	p.failures = 0
	return p.interval
}

// Snapshot returns the latest successful snapshot, or nil before the first.
func (p *Poller) Snapshot() *service.InboxSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Err returns the error of the latest poll, if it failed.
func (p *Poller) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Interval returns the wait currently scheduled between polls.
func (p *Poller) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.interval
}

type pollerEntry struct {
	poller *Poller
	cancel context.CancelFunc
	done   chan struct{}
}

// PollerRegistry runs one poller per active session.
type PollerRegistry struct {
	source InboxSource
	cfg    PollerConfig
	logger *zap.Logger

	now func() time.Time

	mu      sync.Mutex
	base    context.Context
	stop    context.CancelFunc
	pollers map[string]*pollerEntry
	closed  bool
}

// NewPollerRegistry creates a registry. Pollers end when ctx ends, when
// their session stops or expires, when the backend rejects the session, or
// on Shutdown.
func NewPollerRegistry(ctx context.Context, source InboxSource, cfg PollerConfig, logger *zap.Logger) *PollerRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(ctx)
	return &PollerRegistry{
		source:  source,
		cfg:     cfg.withDefaults(),
		logger:  logger,
		now:     time.Now,
		base:    base,
		stop:    stop,
		pollers: make(map[string]*pollerEntry),
	}
}

// Start returns the running poller of sess, starting one if needed. A
// session that has already expired gets a poller that is never started.
func (r *PollerRegistry) Start(sess domain.Session) *Poller {
	key := sessionKey(sess)
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.pollers[key]; ok {
		return entry.poller
	}
	poller := NewPoller(sess, r.source, r.cfg, r.logger)
	if r.closed || sess.Expired(r.now()) {
		return poller
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if sess.ExpiresAt.IsZero() {
		ctx, cancel = context.WithCancel(r.base)
	} else {
		ctx, cancel = context.WithDeadline(r.base, sess.ExpiresAt)
	}
	entry := &pollerEntry{poller: poller, cancel: cancel, done: make(chan struct{})}
	r.pollers[key] = entry
	go func() {
		defer close(entry.done)
		defer r.release(key, entry)
		poller.Run(ctx)
	}()
	r.logger.Debug("session poller started", zap.String("session_id", key))
	return poller
}

// release drops entry once its poller exits on its own.
func (r *PollerRegistry) release(key string, entry *pollerEntry) {
	entry.cancel()
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.pollers[key]; ok && current == entry {
		delete(r.pollers, key)
		r.logger.Debug("session poller ended", zap.String("session_id", key))
	}
}

// Get returns the running poller of sess.
func (r *PollerRegistry) Get(sess domain.Session) (*Poller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.pollers[sessionKey(sess)]
	if !ok {
		return nil, false
	}
	return entry.poller, true
}

// Stop ends the poller of sess and waits for it to exit.
func (r *PollerRegistry) Stop(sess domain.Session) bool {
	key := sessionKey(sess)
	r.mu.Lock()
	entry, ok := r.pollers[key]
	delete(r.pollers, key)
	r.mu.Unlock()
	if !ok {
		return false
	}
	entry.cancel()
	<-entry.done
	r.logger.Debug("session poller stopped", zap.String("session_id", key))
	return true
}

// Active counts running pollers.
func (r *PollerRegistry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pollers)
}

// Run blocks until ctx ends and then shuts every poller down.
func (r *PollerRegistry) Run(ctx context.Context) error {
	<-ctx.Done()
	r.Shutdown()
	return nil
}

// Shutdown stops every poller and refuses new ones.
func (r *PollerRegistry) Shutdown() {
	r.mu.Lock()
	r.closed = true
	entries := make([]*pollerEntry, 0, len(r.pollers))
	for key, entry := range r.pollers {
		entries = append(entries, entry)
		delete(r.pollers, key)
	}
	r.mu.Unlock()

	r.stop()
	for _, entry := range entries {
		<-entry.done
	}
}

func sessionKey(sess domain.Session) string {
	if sess.ID != "" {
		return sess.ID
	}
	return sess.ActorID
}
