package ratelimit

import (
	"time"
)

// Config holds rate limiter configuration.
type Config struct {
	// Limit is the maximum number of requests allowed in the window.
	Limit int

	// Window is the time window for the rate limit.
	Window time.Duration

	// KeyPrefix is the prefix for Redis keys.
	KeyPrefix string
}

// DefaultConfig returns the limits applied to credential endpoints:
// 10 attempts per client IP per minute.
func DefaultConfig() Config {
	return Config{
		Limit:     10,
		Window:    time.Minute,
		KeyPrefix: "ratelimit:",
	}
}
