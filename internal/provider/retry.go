package provider

import (
	"math/rand/v2"
	"net/http"
	"time"
)

// DefaultMaxAttempts bounds the probe requests sent for one key.
const DefaultMaxAttempts = 3

// probeBackoff is the pause after the n-th failed probe; the last entry
// repeats. Each pause is spread by up to 20% either way.
var probeBackoff = [...]time.Duration{200 * time.Millisecond, time.Second}

// NextRetryDelay returns the jittered pause after failed attempt n (0-based).
func NextRetryDelay(n int) time.Duration {
	base := probeBackoff[min(max(n, 0), len(probeBackoff)-1)]
	spread := 0.2 * float64(base)
	return base + time.Duration((rand.Float64()*2-1)*spread)
}

// retryable reports whether a probe status may succeed on a later attempt.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}
