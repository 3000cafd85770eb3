package ratelimit

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for range tt.calls {
				if rl.Allow("client") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := PerMinute(1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 2, rl.Len())
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(10, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, "test"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "first Wait is immediate")

	start = time.Now()
	require.NoError(t, rl.Wait(ctx, "test"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "second Wait is throttled")
}

func TestKeyedRateLimiter_WaitCanceled(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	rl.Allow("test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx, "test"))
}

func TestKeyedRateLimiter_SweepEvictsIdleKeys(t *testing.T) {
	rl := newLimiter(1, 1, time.Minute, time.Hour)
	defer rl.Stop()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	rl.Sweep()
	assert.Equal(t, 1, rl.Len())
	assert.True(t, rl.Allow("old"), "evicted key starts with a full bucket")
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/v1/auth/anonymous", nil)
	r.RemoteAddr = "192.0.2.7:5555"
	assert.Equal(t, "192.0.2.7", ClientKey(r))

	r.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", ClientKey(r))
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
