package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterAllowsBurstThenBlocks(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i+1)
	}
	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)

	// другие ключи не затронуты
	ok, _ = l.Allow(context.Background(), "5.6.7.8")
	assert.True(t, ok)

	// через 12 секунд восстанавливается один токен
	now = now.Add(12 * time.Second)
	ok, _ = l.Allow(context.Background(), "1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.Allow(context.Background(), "1.2.3.4")
	assert.False(t, ok)
}

func TestMemoryLimiterCleanup(t *testing.T) {
	l := NewMemoryLimiter(5, time.Minute)
	now := time.Date(2024, 12, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "old")
	now = now.Add(3 * time.Minute)
	_, _ = l.Allow(context.Background(), "fresh")

	assert.Equal(t, 1, l.Cleanup())
	assert.Len(t, l.limiters, 1)
}
