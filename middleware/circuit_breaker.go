package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/corvids/surgo/core"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreakerMiddleware trips after consecutive query failures and
// rejects further queries until the reset timeout has passed; the first
// query after that probes the database again.
type CircuitBreakerMiddleware struct {
	Threshold    int           // failures before opening
	ResetTimeout time.Duration // wait before half-open

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreakerMiddleware {
	return &CircuitBreakerMiddleware{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		state:        StateClosed,
	}
}

func (m *CircuitBreakerMiddleware) Name() string {
	return "CircuitBreaker"
}

func (m *CircuitBreakerMiddleware) Init(c *core.Client) error {
	return nil
}

func (m *CircuitBreakerMiddleware) Shutdown() error {
	return nil
}

func (m *CircuitBreakerMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	m.mu.Lock()
	switch m.state {
	case StateOpen:
		if time.Since(m.lastFailure) > m.ResetTimeout {
			m.state = StateHalfOpen
			m.probing = false
		} else {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
	case StateHalfOpen:
		if m.probing {
			m.mu.Unlock()
			return nil, ErrCircuitOpen
		}
	}
	if m.state == StateHalfOpen {
		m.probing = true
	}
	m.mu.Unlock()

	res, err := next(ctx, query)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failures++
		m.lastFailure = time.Now()
		if m.state == StateHalfOpen || m.failures >= m.Threshold {
			m.state = StateOpen
		}
		return res, err
	}

	m.state = StateClosed
	m.failures = 0
	return res, nil
}
