package olcclient

import "time"

// PollInterval is the pure adaptive backoff function: attempts 1-100 poll every 400ms, 101-300 every 5s, 301+ every 30s.
// Kept standalone (no receiver, no side effects) so it is trivially
// unit-testable independent of the poller that calls it.
func PollInterval(attempt int) time.Duration {
	switch {
	case attempt <= 100:
		return 400 * time.Millisecond
	case attempt <= 300:
		return 5 * time.Second
	default:
		return 30 * time.Second
	}
}
