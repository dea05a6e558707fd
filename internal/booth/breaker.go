package booth

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/cjeanneret/boothcam/internal/debug"
)

// BreakerConfig controls the session breaker.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// breaker wraps gobreaker around session opening.
type breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// newBreaker returns nil when cfg is disabled.
func newBreaker[T any](name string, cfg BreakerConfig) *breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			debug.Warn("breaker %s: %s -> %s", name, from, to)
		},
	})
	return &breaker[T]{cb: cb}
}

// state is "closed" for a nil breaker.
func (b *breaker[T]) state() string {
	if b == nil {
		return gobreaker.StateClosed.String()
	}
	return b.cb.State().String()
}

// execute runs fn through b, or directly when b is nil.
func execute[T any](b *breaker[T], fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}

	result, err := b.cb.Execute(fn)
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) {
			return zero, ErrCircuitOpen
		}
		if errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, ErrTooManyRequests
		}
		return result, err
	}
	return result, nil
}
