package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	commonerrors "github.com/mediarequest/backend/internal/common/errors"
	"github.com/mediarequest/backend/internal/common/logger"
	"github.com/mediarequest/backend/internal/observability/metrics"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type CircuitBreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the
	// breaker. Zero or less disables it.
	Threshold int32
	// Timeout bounds each guarded call. Zero leaves the caller's deadline.
	Timeout time.Duration
	// ResetAfter is how long the breaker stays open before letting a single
	// probe call through.
	ResetAfter time.Duration
	Name       string
	// IgnoreErrors are expected outcomes (not found, conflict) that prove the
	// dependency answered and never count as failures.
	IgnoreErrors []error
	Now          func() time.Time
	Logger       *logger.Logger
}

// CircuitBreaker rejects calls to a dependency that keeps failing, so
// requests fail fast instead of queueing on a dead store.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int32
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cb := &CircuitBreaker{cfg: cfg}
	cb.publishState(StateClosed)
	return cb
}

// State reports the current state, moving an expired open breaker to
// half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireLocked()
	return cb.state
}

// Call runs fn unless the breaker is open. While half-open only one probe is
// admitted; its result closes or reopens the breaker.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	probe, ok := cb.admit()
	if !ok {
		if cb.cfg.Name != "" {
			metrics.CircuitBreakerRejections.WithLabelValues(cb.cfg.Name).Inc()
		}
		cb.warnf("circuit breaker [%s]: circuit is open, rejecting request", cb.cfg.Name)
		return commonerrors.ErrCircuitOpen
	}

	callCtx := ctx
	if cb.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.cfg.Timeout)
		defer cancel()
	}

	err := fn(callCtx)
	cb.record(ctx, err, probe)
	return err
}

func (cb *CircuitBreaker) admit() (probe bool, ok bool) {
	if cb.cfg.Threshold <= 0 {
		return false, true
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expireLocked()

	switch cb.state {
	case StateOpen:
		return false, false
	case StateHalfOpen:
		if cb.probing {
			return false, false
		}
		cb.probing = true
		return true, true
	default:
		return false, true
	}
}

func (cb *CircuitBreaker) record(ctx context.Context, err error, probe bool) {
	if cb.cfg.Threshold <= 0 {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if probe {
		cb.probing = false
	}

	// The caller gave up; that says nothing about the dependency.
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return
	}

	if err == nil || cb.ignored(err) {
		if cb.state != StateClosed {
			cb.infof("circuit breaker [%s]: closed after successful probe", cb.cfg.Name)
		}
		cb.failures = 0
		cb.setStateLocked(StateClosed)
		return
	}

	if cb.cfg.Name != "" {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.cfg.Name).Inc()
	}
	cb.failures++

	if cb.state == StateHalfOpen || cb.failures >= cb.cfg.Threshold {
		if cb.state != StateOpen {
			cb.warnf("circuit breaker [%s]: opened after %d consecutive failures", cb.cfg.Name, cb.failures)
		}
		cb.openedAt = cb.cfg.Now()
		cb.setStateLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) expireLocked() {
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.ResetAfter {
		cb.setStateLocked(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	if cb.state == state {
		return
	}
	cb.state = state
	cb.publishState(state)
}

func (cb *CircuitBreaker) publishState(state State) {
	if cb.cfg.Name != "" {
		metrics.CircuitBreakerState.WithLabelValues(cb.cfg.Name).Set(float64(state))
	}
}

func (cb *CircuitBreaker) ignored(err error) bool {
	for _, target := range cb.cfg.IgnoreErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) warnf(format string, args ...any) {
	if cb.cfg.Logger != nil {
		cb.cfg.Logger.Warnf(format, args...)
	}
}

func (cb *CircuitBreaker) infof(format string, args ...any) {
	if cb.cfg.Logger != nil {
		cb.cfg.Logger.Infof(format, args...)
	}
}
