package server

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	MaxAttempts int           // Maximum attempts per window (default: 10)
	Window      time.Duration // Time window for rate limiting (default: 1 minute)
}

// DefaultRateLimitConfig returns the default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts: 10,
		Window:      time.Minute,
	}
}

// rateLimiter implements a per-address sliding window rate limiter.
type rateLimiter struct {
	mu     sync.Mutex
	config RateLimitConfig
	now    func() time.Time

	// attempts tracks timestamps of attempts per IP
	attempts map[string][]time.Time
}

// newRateLimiter creates a new rate limiter with the given configuration.
func newRateLimiter(config RateLimitConfig) *rateLimiter {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 10
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &rateLimiter{
		config:   config,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
}

// checkResult represents the result of a rate limit check.
type checkResult struct {
	Allowed    bool
	RetryAfter time.Duration // How long until the client can retry
}

// check records an attempt from ip and reports whether it is allowed.
// Rejected attempts are not recorded.
func (rl *rateLimiter) check(ip string) checkResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	valid := rl.prune(ip, now)

	if len(valid) >= rl.config.MaxAttempts {
		retryAfter := valid[0].Add(rl.config.Window).Sub(now)
		if retryAfter <= 0 {
			retryAfter = time.Second
		}
		return checkResult{Allowed: false, RetryAfter: retryAfter}
	}

	rl.attempts[ip] = append(valid, now)
	return checkResult{Allowed: true}
}

// prune drops attempts older than the window. Callers must hold mu.
func (rl *rateLimiter) prune(ip string, now time.Time) []time.Time {
	windowStart := now.Add(-rl.config.Window)
	timestamps := rl.attempts[ip]
	valid := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// cleanup removes expired entries from the rate limiter.
// Should be called periodically.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip := range rl.attempts {
		rl.prune(ip, now)
	}
}

// size returns the number of tracked addresses.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}

// clientIP returns the request's client address without the port. The
// RealIP middleware has already applied X-Forwarded-For and X-Real-IP.
func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}
