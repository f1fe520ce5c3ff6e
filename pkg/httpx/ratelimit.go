// Package httpx holds client-side HTTP plumbing shared by the SDK facades.
package httpx

import (
	"context"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig defines outbound throttling parameters for one facade.
// Mobile backends shed load aggressively; pacing requests client-side keeps
// a misbehaving screen from getting the whole device throttled server-side.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Outbound rate limit profiles per endpoint family.
// These can be overridden via environment variables (see init below).
var (
	// AuthLimit paces credential operations (login, register, refresh).
	// Override with: RATELIMIT_AUTH_REQUESTS, RATELIMIT_AUTH_WINDOW_SEC, RATELIMIT_AUTH_BURST
	AuthLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             5,
	}

	// GeneralLimit paces ordinary authenticated API traffic.
	// Override with: RATELIMIT_GENERAL_REQUESTS, RATELIMIT_GENERAL_WINDOW_SEC, RATELIMIT_GENERAL_BURST
	GeneralLimit = RateLimitConfig{
		RequestsPerWindow: 120,
		Window:            time.Minute,
		Burst:             30,
	}

	// UploadLimit paces direct binary uploads to third-party storage.
	// Override with: RATELIMIT_UPLOAD_REQUESTS, RATELIMIT_UPLOAD_WINDOW_SEC, RATELIMIT_UPLOAD_BURST
	UploadLimit = RateLimitConfig{
		RequestsPerWindow: 6,
		Window:            time.Minute,
		Burst:             2,
	}
)

func init() {
	applyEnvOverrides(&AuthLimit, "AUTH")
	applyEnvOverrides(&GeneralLimit, "GENERAL")
	applyEnvOverrides(&UploadLimit, "UPLOAD")
}

// applyEnvOverrides mutates cfg from RATELIMIT_<NAME>_* variables when set.
func applyEnvOverrides(cfg *RateLimitConfig, name string) {
	if v, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_REQUESTS")); err == nil && v > 0 {
		cfg.RequestsPerWindow = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_WINDOW_SEC")); err == nil && v > 0 {
		cfg.Window = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(os.Getenv("RATELIMIT_" + name + "_BURST")); err == nil && v > 0 {
		cfg.Burst = v
	}
}

// Limiter gates outbound requests for one endpoint family.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter builds a Limiter from a profile.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	perSecond := rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window.Seconds())
	return &Limiter{limiter: rate.NewLimiter(perSecond, cfg.Burst)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may be sent right now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
