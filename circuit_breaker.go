package homeworks

import (
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"
)

// dialBreaker guards transport dials. While open, connection attempts fail
// fast with gobreaker.ErrOpenState instead of hammering an unreachable bridge.
type dialBreaker = gobreaker.CircuitBreaker[*puddle.Resource[*Connection]]

// NewCircuitBreakerSettings returns settings that open the breaker after
// consecutiveFailures failed dials and probe again after timeout.
// This is a helper for common use cases.
func NewCircuitBreakerSettings(address string, consecutiveFailures uint32, timeout time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        address,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= consecutiveFailures
		},
	}
}

func newDialBreaker(settings *gobreaker.Settings) *dialBreaker {
	if settings == nil {
		return nil
	}
	return gobreaker.NewCircuitBreaker[*puddle.Resource[*Connection]](*settings)
}
