// Package breaker wraps github.com/sony/gobreaker with the per-subsystem
// shouldAttempt/recordSuccess/recordFailure contract of §4.8, keeping a
// distinct breaker instance per subsystem name (embedding provider, store,
// vault filesystem, ...).
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrOpen is returned when a subsystem's breaker refuses the call.
var ErrOpen = errors.New("breaker: circuit open")

// State mirrors gobreaker's three states under the names of §4.8.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Breaker manages one two-step circuit breaker per subsystem, all sharing
// the same maxFailures/cooldown parameters.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration

	mu      sync.Mutex
	cbs     map[string]*gobreaker.TwoStepCircuitBreaker
	pending map[string]func(bool)
}

// New constructs a Breaker with the given failure threshold and cooldown
// (spec defaults: maxFailures=3, cooldown=10m).
func New(maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		cbs:         make(map[string]*gobreaker.TwoStepCircuitBreaker),
		pending:     make(map[string]func(bool)),
	}
}

func (b *Breaker) cbFor(subsystem string) *gobreaker.TwoStepCircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	cb, ok := b.cbs[subsystem]
	if ok {
		return cb
	}
	maxFailures := uint32(b.maxFailures)
	cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        subsystem,
		MaxRequests: 1, // single probe allowed in half-open
		Timeout:     b.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})
	b.cbs[subsystem] = cb
	return cb
}

// ShouldAttempt reports whether a fallible call against subsystem may
// proceed. Callers must follow a true result with exactly one of
// RecordSuccess or RecordFailure.
func (b *Breaker) ShouldAttempt(subsystem string) bool {
	done, err := b.cbFor(subsystem).Allow()
	if err != nil {
		return false
	}
	b.mu.Lock()
	b.pending[subsystem] = done
	b.mu.Unlock()
	return true
}

func (b *Breaker) RecordSuccess(subsystem string) { b.complete(subsystem, true) }

func (b *Breaker) RecordFailure(subsystem string, err error) { b.complete(subsystem, false) }

func (b *Breaker) complete(subsystem string, success bool) {
	b.mu.Lock()
	done := b.pending[subsystem]
	delete(b.pending, subsystem)
	b.mu.Unlock()
	if done != nil {
		done(success)
	}
}

// State reports a subsystem's current breaker state for health reporting.
func (b *Breaker) State(subsystem string) State {
	switch b.cbFor(subsystem).State() {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// GuardRead runs fn if the breaker allows it; on OPEN or on fn's failure it
// degrades to the zero value rather than propagating an error, per §4.8
// "reads degrade to empty results".
func GuardRead[T any](b *Breaker, subsystem string, fn func() (T, error)) T {
	var zero T
	if !b.ShouldAttempt(subsystem) {
		return zero
	}
	v, err := fn()
	if err != nil {
		b.RecordFailure(subsystem, err)
		return zero
	}
	b.RecordSuccess(subsystem)
	return v
}

// GuardWrite runs fn if the breaker allows it; on OPEN it short-circuits to
// a nil result without error, per §4.8 "writes short-circuit to null
// results". A real failure from fn is still propagated so callers can log
// and feed the breaker's own accounting.
func GuardWrite(b *Breaker, subsystem string, fn func() error) error {
	if !b.ShouldAttempt(subsystem) {
		return nil
	}
	err := fn()
	if err != nil {
		b.RecordFailure(subsystem, err)
		return err
	}
	b.RecordSuccess(subsystem)
	return nil
}
