// Package reaper ends conversation sessions that have gone quiet so the
// in-memory store does not grow without bound.
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/stepchat/internal/domain"
	"github.com/hammamikhairi/stepchat/internal/logger"
)

// Expirer ends sessions idle since before cutoff. *engine.Engine satisfies it.
type Expirer interface {
	ExpireIdle(ctx context.Context, cutoff time.Time) ([]*domain.Session, error)
}

// Option configures the reaper.
type Option func(*Reaper)

// WithTickInterval sets how often the reaper looks for idle sessions.
func WithTickInterval(d time.Duration) Option {
	return func(r *Reaper) {
		r.tickInterval = d
	}
}

// WithIdleTTL sets how long a session may go without a turn.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Reaper) {
		r.idleTTL = d
	}
}

// WithOnExpire registers a callback run for every expired session, e.g.
// to tell the owner and drop them from a router.
func WithOnExpire(fn func(ctx context.Context, s *domain.Session)) Option {
	return func(r *Reaper) {
		r.onExpire = append(r.onExpire, fn)
	}
}

// WithClock overrides the time source used to compute the cutoff.
func WithClock(now func() time.Time) Option {
	return func(r *Reaper) {
		r.now = now
	}
}

// Reaper runs in the background and expires idle sessions.
type Reaper struct {
	expirer      Expirer
	log          *logger.Logger
	tickInterval time.Duration
	idleTTL      time.Duration
	onExpire     []func(context.Context, *domain.Session)
	now          func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a reaper with the given dependencies and options.
func New(expirer Expirer, log *logger.Logger, opts ...Option) *Reaper {
	r := &Reaper{
		expirer:      expirer,
		log:          log,
		tickInterval: time.Minute,
		idleTTL:      30 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins the background loop. Non-blocking.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.log.Warn("session reaper already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go func(done chan struct{}) {
		defer close(done)
		r.loop(childCtx)
	}(r.done)

	r.log.Info("session reaper started (tick=%s, idle ttl=%s)", r.tickInterval, r.idleTTL)
}

// Stop shuts the loop down and waits for it to exit.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	done := r.done
	r.mu.Unlock()

	<-done
	r.log.Info("session reaper stopped")
}

// Run blocks until ctx is cancelled. It suits errgroup-style callers.
func (r *Reaper) Run(ctx context.Context) error {
	r.Start(ctx)
	<-ctx.Done()
	r.Stop()
	return nil
}

func (r *Reaper) loop(ctx context.Context) {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass and returns how many sessions it ended.
func (r *Reaper) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)
	expired, err := r.expirer.ExpireIdle(ctx, cutoff)
	if err != nil {
		r.log.Error("reaper: expiring idle sessions: %v", err)
	}
	for _, s := range expired {
		r.log.Debug("reaper: session %s for %s expired", s.ID, s.Owner)
		for _, fn := range r.onExpire {
			fn(ctx, s)
		}
	}
	return len(expired)
}
