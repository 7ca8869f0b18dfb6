package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tecnomadas-portal/internal/config"
)

func newTestLimiter(clock *time.Time) *RateLimiter {
	rl := NewRateLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerMinute: 2,
		RequestsPerHour:   3,
		RequestsPerDay:    4,
	})
	rl.now = func() time.Time { return *clock }
	return rl
}

func TestAllowPerMinute(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&clock)

	ok, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	clock = clock.Add(10 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)

	ok, wait := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, 50*time.Second, wait)

	// other clients are tracked separately
	ok, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok)

	clock = clock.Add(51 * time.Second)
	ok, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
}

func TestAllowPerHourAndDay(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&clock)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("ip")
		assert.True(t, ok)
		clock = clock.Add(2 * time.Minute)
	}
	ok, wait := rl.Allow("ip")
	assert.False(t, ok)
	assert.Equal(t, 54*time.Minute, wait)

	clock = clock.Add(time.Hour)
	ok, _ = rl.Allow("ip")
	assert.True(t, ok)

	clock = clock.Add(time.Hour)
	ok, _ = rl.Allow("ip")
	assert.False(t, ok, "daily limit reached")
}

func TestDisabledAllowsEverything(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitConfig{RequestsPerMinute: 1})
	for i := 0; i < 10; i++ {
		ok, _ := rl.Allow("ip")
		assert.True(t, ok)
	}
	assert.False(t, rl.GetStats().Enabled)
}

func TestPruneAndReset(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := newTestLimiter(&clock)

	rl.Allow("a")
	rl.Allow("b")
	assert.Equal(t, 2, rl.GetStats().TrackedClients)

	clock = clock.Add(25 * time.Hour)
	rl.Allow("c")
	assert.Equal(t, 2, rl.Prune())
	assert.Equal(t, 1, rl.GetStats().TrackedClients)

	rl.Reset()
	assert.Zero(t, rl.GetStats().TrackedClients)
}
