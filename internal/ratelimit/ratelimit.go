// Package ratelimit throttles inquiry submissions per client.
package ratelimit

import (
	"sync"
	"time"

	"tecnomadas-portal/internal/config"
)

// window tracks the request times of one client
type window struct {
	minute []time.Time
	hour   []time.Time
	day    []time.Time
}

// RateLimiter enforces per-minute, per-hour and per-day limits for each key.
// A zero limit disables that window.
type RateLimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	requestsPerDay    int
	enabled           bool
	now               func() time.Time

	clients map[string]*window
	mu      sync.Mutex
}

// NewRateLimiter creates a limiter from the rate limit config
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: cfg.RequestsPerMinute,
		requestsPerHour:   cfg.RequestsPerHour,
		requestsPerDay:    cfg.RequestsPerDay,
		enabled:           cfg.Enabled,
		now:               time.Now,
		clients:           make(map[string]*window),
	}
}

// Allow records a request for key and reports whether it fits the limits.
// When refused it returns how long until the oldest blocking entry expires.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	if !rl.enabled {
		return true, 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.clients[key]
	if w == nil {
		w = &window{}
		rl.clients[key] = w
	}
	w.cleanup(now)

	if wait := blocked(w.minute, rl.requestsPerMinute, time.Minute, now); wait > 0 {
		return false, wait
	}
	if wait := blocked(w.hour, rl.requestsPerHour, time.Hour, now); wait > 0 {
		return false, wait
	}
	if wait := blocked(w.day, rl.requestsPerDay, 24*time.Hour, now); wait > 0 {
		return false, wait
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	w.day = append(w.day, now)
	return true, 0
}

// blocked returns the wait until times drops below limit, or zero
func blocked(times []time.Time, limit int, span time.Duration, now time.Time) time.Duration {
	if limit <= 0 || len(times) < limit {
		return 0
	}
	wait := times[len(times)-limit].Add(span).Sub(now)
	if wait <= 0 {
		return time.Nanosecond
	}
	return wait
}

// cleanup removes expired entries from the time windows
func (w *window) cleanup(now time.Time) {
	w.minute = filterTimes(w.minute, now.Add(-time.Minute))
	w.hour = filterTimes(w.hour, now.Add(-time.Hour))
	w.day = filterTimes(w.day, now.Add(-24*time.Hour))
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}

// Prune drops clients with no requests in the last day
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, w := range rl.clients {
		w.cleanup(now)
		if len(w.day) == 0 {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// GetStats returns current rate limiter statistics
func (rl *RateLimiter) GetStats() Stats {
	if !rl.enabled {
		return Stats{Enabled: false}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	return Stats{
		Enabled:        true,
		TrackedClients: len(rl.clients),
		LimitPerMinute: rl.requestsPerMinute,
		LimitPerHour:   rl.requestsPerHour,
		LimitPerDay:    rl.requestsPerDay,
	}
}

// Stats contains rate limiter statistics
type Stats struct {
	Enabled        bool `json:"enabled"`
	TrackedClients int  `json:"tracked_clients"`
	LimitPerMinute int  `json:"limit_per_minute"`
	LimitPerHour   int  `json:"limit_per_hour"`
	LimitPerDay    int  `json:"limit_per_day"`
}

// Reset clears all tracked requests
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.clients = make(map[string]*window)
}
