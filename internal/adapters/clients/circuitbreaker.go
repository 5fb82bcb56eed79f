package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/quotebook/internal/platform/config"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen blocks requests until the open timeout elapses.
	StateOpen

	// StateHalfOpen lets a limited number of probe requests through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards the remote quote source so a failing remote is not
// hammered by every sync tick and every background publish.
//
//	closed    -> open:      MaxFailures consecutive failures
//	open      -> half-open: Timeout after the last failure
//	half-open -> closed:    HalfOpenLimit consecutive successes
//	half-open -> open:      any failure
type CircuitBreaker struct {
	mu          sync.Mutex
	cfg         config.CircuitBreakerConfig
	state       State
	failures    int
	successes   int
	probes      int
	lastFailure time.Time

	onStateChange func(from, to State)
	now           func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// OnStateChange registers fn to be called after every transition. fn runs on
// the goroutine that caused the transition, after the breaker is unlocked.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Allow reports whether a request may proceed. It moves an open breaker to
// half-open once the timeout has passed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	var change func()
	allowed := false

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.cfg.Timeout {
			change = cb.transitionTo(StateHalfOpen)
			cb.probes = 1
			allowed = true
		}
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenLimit {
			cb.probes++
			allowed = true
		}
	}

	cb.mu.Unlock()
	notify(change)

	return allowed
}

// RecordSuccess records a successful request.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var change func()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.probes--
		cb.successes++
		if cb.successes >= cb.cfg.HalfOpenLimit {
			change = cb.transitionTo(StateClosed)
		}
	}

	cb.mu.Unlock()
	notify(change)
}

// RecordFailure records a failed request.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	var change func()

	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			change = cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.probes--
		change = cb.transitionTo(StateOpen)
	}

	cb.mu.Unlock()
	notify(change)
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// transitionTo changes state and returns the pending notification, if any.
// Callers hold cb.mu and must run the returned func after unlocking.
func (cb *CircuitBreaker) transitionTo(next State) func() {
	if cb.state == next {
		return nil
	}

	prev := cb.state
	cb.state = next
	cb.failures = 0
	cb.successes = 0

	if fn := cb.onStateChange; fn != nil {
		return func() { fn(prev, next) }
	}

	return nil
}

func notify(change func()) {
	if change != nil {
		change()
	}
}
