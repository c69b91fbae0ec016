package classifier

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"credibility-scanner/metrics"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState values double as the exported gauge value.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerHalfOpen
	BreakerOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerHalfOpen:
		return "half-open"
	case BreakerOpen:
		return "open"
	default:
		return "closed"
	}
}

// CircuitBreaker guards calls to the model server. After Threshold
// consecutive failures it rejects calls for Cooldown, then admits a single
// trial call whose outcome closes or reopens the circuit.
type CircuitBreaker struct {
	Name      string
	Threshold int
	Cooldown  time.Duration
	Now       func() time.Time

	log *zap.Logger

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	trial    bool
}

func NewCircuitBreaker(log *zap.Logger, name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{
		Name:      name,
		Threshold: threshold,
		Cooldown:  cooldown,
		Now:       time.Now,
		log:       log,
	}
	cb.setState(BreakerClosed)
	return cb
}

// Execute runs fn unless the circuit is open. fn's error is returned as is.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if cb.Now().Sub(cb.openedAt) < cb.Cooldown {
			return ErrCircuitOpen
		}
		cb.setState(BreakerHalfOpen)
		cb.trial = true
		cb.log.Info("Circuit half-open, sending trial request", zap.String("service", cb.Name))
	case BreakerHalfOpen:
		if cb.trial {
			return ErrCircuitOpen
		}
		cb.trial = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.trial = false
	if err == nil {
		cb.failures = 0
		if cb.state != BreakerClosed {
			cb.setState(BreakerClosed)
			cb.log.Info("Circuit closed", zap.String("service", cb.Name))
		}
		return
	}

	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.Threshold {
		cb.openedAt = cb.Now()
		cb.setState(BreakerOpen)
		cb.log.Warn("Circuit opened",
			zap.String("service", cb.Name),
			zap.Int("failures", cb.failures),
			zap.Time("retry_after", cb.openedAt.Add(cb.Cooldown)),
			zap.Error(err))
	}
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(s BreakerState) {
	cb.state = s
	metrics.CircuitBreakerState.WithLabelValues(cb.Name).Set(float64(s))
}
