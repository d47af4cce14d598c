package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		count     int64
		allowed   bool
		remaining int
	}{
		{"empty window", 0, true, 4},
		{"last slot", 4, true, 0},
		{"full", 5, false, 0},
		{"over", 9, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decide(tt.count, 5, now, time.Minute)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.remaining, d.Remaining)
			assert.Equal(t, 5, d.Limit)
			assert.Equal(t, now.Add(time.Minute), d.ResetAt)
		})
	}
}

func TestDecision_RetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	d := Decision{Allowed: false, ResetAt: now.Add(42*time.Second + 300*time.Millisecond)}
	assert.Equal(t, 42*time.Second, d.RetryAfter(now))

	d.Allowed = true
	assert.Zero(t, d.RetryAfter(now))

	assert.Zero(t, Decision{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
}

func TestNoopLimiter(t *testing.T) {
	d, err := NoopLimiter{}.Allow(context.Background(), "ip:10.0.0.1")
	assert.NoError(t, err)
	assert.True(t, d.Allowed)
}
