// breaker.go implements a circuit breaker for guarding calls to failing
// dependencies.

package faultline

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BreakerState identifies a circuit breaker state.
type BreakerState string

const (
	// BreakerClosed admits every call.
	BreakerClosed BreakerState = "closed"

	// BreakerOpen rejects every call until the recovery timeout elapses.
	BreakerOpen BreakerState = "open"

	// BreakerHalfOpen admits a single probe call to test recovery.
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerConfig controls when a breaker opens and how long it stays open.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the breaker.
	FailureThreshold int `yaml:"failureThreshold"`

	// RecoveryTimeout is how long the breaker rejects calls before
	// admitting a probe.
	RecoveryTimeout time.Duration `yaml:"recoveryTimeout"`
}

// DefaultBreakerConfig returns the stock thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
	}
}

// BreakerOption configures a Breaker.
type BreakerOption func(*Breaker)

// WithBreakerLogger sets the logger for state transitions.
func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithBreakerTracker reports guarded-call failures to the tracker, tagged
// with the breaker name.
func WithBreakerTracker(tracker *Tracker) BreakerOption {
	return func(b *Breaker) {
		b.tracker = tracker
	}
}

// Breaker trips after consecutive failures and rejects calls until the
// recovery timeout elapses, then admits a single probe. A successful probe
// closes the breaker; a failed probe reopens it. Safe for concurrent use.
type Breaker struct {
	name    string
	cfg     BreakerConfig
	logger  *slog.Logger
	tracker *Tracker

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool

	now func() time.Time
}

// NewBreaker creates a closed breaker with the given name and thresholds.
// Zero-valued config fields fall back to DefaultBreakerConfig values.
func NewBreaker(name string, cfg BreakerConfig, opts ...BreakerOption) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}

	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default(),
		state:  BreakerClosed,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do runs op under the breaker. When the breaker rejects the call, Do
// returns ErrBreakerOpen without invoking op. Otherwise op's error is
// returned unchanged.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	probe, err := b.admit()
	if err != nil {
		return err
	}

	err = op(ctx)
	b.settle(probe, err)

	if err != nil && b.tracker != nil {
		b.tracker.TrackException(ctx, err, &ErrorContext{
			FunctionName:   b.name,
			ModuleName:     "breaker",
			AdditionalData: map[string]string{"breaker": b.name},
		})
	}
	return err
}

// admit decides whether a call may proceed and reports whether the admitted
// call is the half-open probe.
func (b *Breaker) admit() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return false, nil
	case BreakerOpen:
		if b.now().Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			return false, ErrBreakerOpen
		}
		b.transition(BreakerHalfOpen)
		b.probing = true
		return true, nil
	default: // BreakerHalfOpen
		if b.probing {
			return false, ErrBreakerOpen
		}
		b.probing = true
		return true, nil
	}
}

// settle records the outcome of an admitted call.
func (b *Breaker) settle(probe bool, opErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
		if opErr == nil {
			b.failures = 0
			b.transition(BreakerClosed)
		} else {
			b.openedAt = b.now()
			b.transition(BreakerOpen)
		}
		return
	}

	// The breaker may have tripped while this call was in flight; stale
	// outcomes only count against the closed state.
	if b.state != BreakerClosed {
		return
	}
	if opErr == nil {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.openedAt = b.now()
		b.transition(BreakerOpen)
	}
}

// transition moves to the target state. Callers hold b.mu.
func (b *Breaker) transition(next BreakerState) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	observeBreakerState(b.name, next)
	b.logger.Info("breaker state changed", "breaker", b.name, "from", prev, "to", next)
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count in the closed state.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset force-closes the breaker and clears its failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probing = false
	b.transition(BreakerClosed)
}

// BreakerGroup caches breakers by name so call sites can share one breaker
// per dependency. Breakers are created lazily with the group's config.
type BreakerGroup struct {
	cfg  BreakerConfig
	opts []BreakerOption

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewBreakerGroup creates a group whose breakers share cfg and opts.
func NewBreakerGroup(cfg BreakerConfig, opts ...BreakerOption) *BreakerGroup {
	return &BreakerGroup{
		cfg:      cfg,
		opts:     opts,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker with the given name, creating it on first use.
func (g *BreakerGroup) Get(name string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.breakers[name]
	if !ok {
		b = NewBreaker(name, g.cfg, g.opts...)
		g.breakers[name] = b
	}
	return b
}

// Do runs op under the named breaker.
func (g *BreakerGroup) Do(ctx context.Context, name string, op func(context.Context) error) error {
	return g.Get(name).Do(ctx, op)
}
