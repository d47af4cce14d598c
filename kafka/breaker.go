package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tair/retail-ledger/pkg/logger"
)

// ErrCircuitOpen is returned while the breaker rejects publishes
var ErrCircuitOpen = errors.New("kafka: circuit breaker is open")

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// CircuitBreaker stops calling a failing broker for a cool-down period.
// After the cool-down one probe is let through per call; halfOpenSuccesses
// consecutive successes close the circuit, any failure reopens it.
type CircuitBreaker struct {
	name              string
	maxFailures       int
	coolDown          time.Duration
	halfOpenSuccesses int

	mu              sync.Mutex
	state           CircuitState
	failures        int
	successes       int
	lastStateChange time.Time
	now             func() time.Time
}

func NewCircuitBreaker(name string, maxFailures int, coolDown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	cb := &CircuitBreaker{
		name:              name,
		maxFailures:       maxFailures,
		coolDown:          coolDown,
		halfOpenSuccesses: 3,
		state:             StateClosed,
		now:               time.Now,
	}
	cb.lastStateChange = cb.now()
	return cb
}

// Call executes fn unless the circuit is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen && cb.now().Sub(cb.lastStateChange) >= cb.coolDown {
		cb.transition(StateHalfOpen)
		logger.Logger.Info().Str("circuit", cb.name).Msg("Circuit breaker transitioning to half-open")
	}
	state := cb.state
	cb.mu.Unlock()

	if state == StateOpen {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	return err
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++

	switch {
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
		logger.Logger.Warn().Str("circuit", cb.name).Msg("Circuit breaker reopened after half-open failure")
	case cb.state == StateClosed && cb.failures >= cb.maxFailures:
		cb.transition(StateOpen)
		logger.Logger.Error().
			Str("circuit", cb.name).
			Int("failures", cb.failures).
			Int("threshold", cb.maxFailures).
			Msg("Circuit breaker opened")
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.halfOpenSuccesses {
			cb.transition(StateClosed)
			logger.Logger.Info().Str("circuit", cb.name).Msg("Circuit breaker closed after successful recovery")
		}
	case StateClosed:
		cb.failures = 0
	}
}

// transition must be called with mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.lastStateChange = cb.now()
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// EventSink is anything that publishes ledger events
type EventSink interface {
	PublishSaleRecorded(ctx context.Context, event SaleRecordedEvent) error
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// GuardedPublisher routes publishes through a circuit breaker. While the
// circuit is open every publish fails with ErrCircuitOpen without touching
// the producer.
type GuardedPublisher struct {
	next    EventSink
	breaker *CircuitBreaker
}

func NewGuardedPublisher(next EventSink, breaker *CircuitBreaker) *GuardedPublisher {
	return &GuardedPublisher{next: next, breaker: breaker}
}

func (g *GuardedPublisher) PublishSaleRecorded(ctx context.Context, event SaleRecordedEvent) error {
	return g.breaker.Call(func() error {
		return g.next.PublishSaleRecorded(ctx, event)
	})
}

func (g *GuardedPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	return g.breaker.Call(func() error {
		return g.next.PublishOrderEvent(ctx, event)
	})
}
