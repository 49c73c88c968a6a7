// Package circuitbreaker wraps sony/gobreaker with typed results and app error codes.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/xchain-pricer/internal/apperror"
)

// Config holds circuit breaker settings.
type Config struct {
	Name             string
	MaxRequests      uint32        // allowed through while half-open
	Interval         time.Duration // closed-state counter reset period, 0 = never
	Timeout          time.Duration // open -> half-open delay
	FailureThreshold uint32        // consecutive failures that trip the breaker
	OnStateChange    func(name string, from, to gobreaker.State)
	// IsExcluded errors are neither successes nor failures.
	IsExcluded func(err error) bool
}

// DefaultConfig returns settings suitable for RPC and HTTP upstreams.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// CircuitBreaker guards calls returning T.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New creates a breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
		IsExcluded:    cfg.IsExcluded,
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn unless the breaker is open. Rejections are returned as
// CodeCircuitOpen / CodeCircuitHalfOpen app errors.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	res, err := c.cb.Execute(fn)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return res, apperror.New(apperror.CodeCircuitOpen,
			apperror.WithCause(err),
			apperror.WithContext(c.cb.Name()))
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return res, apperror.New(apperror.CodeCircuitHalfOpen,
			apperror.WithCause(err),
			apperror.WithContext(c.cb.Name()))
	}
	return res, err
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the breaker name.
func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}

// IsOpen reports whether calls are currently rejected.
func (c *CircuitBreaker[T]) IsOpen() bool {
	return c.cb.State() == gobreaker.StateOpen
}
