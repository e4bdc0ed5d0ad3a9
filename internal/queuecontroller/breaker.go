package queuecontroller

import (
	"time"

	"github.com/sony/gobreaker"

	"testprobe/pkg/logging"
)

// Recommended defaults from spec.md §4.2's failure semantics: N consecutive
// failures opens the breaker, call-timeout bounds each dispatch, and
// reset-timeout is how long the breaker stays open before a half-open
// probe call is allowed through.
const (
	breakerMaxConsecutiveFailures = 5
	breakerCallTimeout            = 25 * time.Second
	breakerResetTimeout           = 30 * time.Second
)

// newBreaker constructs the per-test circuit breaker guarding every
// dispatch to one lifecycle controller. name identifies the test in
// OnStateChange log lines.
func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    name,
		Timeout: breakerResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxConsecutiveFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logging.Warn("QueueController", "circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// dispatch runs fn through cb, translating the generic any result back to
// T. Every queue controller operation goes through this so breaker state
// is shared across InitializeTest/StartTest/Status/Cancel for one test.
func dispatch[T any](cb *gobreaker.CircuitBreaker[any], fn func() (T, error)) (T, error) {
	v, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
