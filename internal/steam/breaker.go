package steam

import (
	"log/slog"
	"math"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"gametime/internal/logging"
)

// newBreaker opens after failures consecutive transport or 5xx failures and
// probes again after cooldown. Client errors such as 403 do not count.
func newBreaker(failures int, cooldown time.Duration, logger *slog.Logger) *gobreaker.CircuitBreaker[reply] {
	threshold := uint32(math.MaxUint32)
	if failures > 0 {
		threshold = uint32(failures)
	}
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return gobreaker.NewCircuitBreaker[reply](gobreaker.Settings{
		Name:        "steam-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				logging.String("breaker", name),
				logging.String("from", stateName(from)),
				logging.String("to", stateName(to)),
			)
		},
	})
}

func stateName(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
