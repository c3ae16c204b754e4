package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ctx = context.Background()

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newRedisCounter(t *testing.T) (*RedisCounter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return NewRedisCounter(redis.NewClient(&redis.Options{Addr: mr.Addr()})), mr
}

func TestAllow_FixedWindow(t *testing.T) {
	counters := map[string]func(t *testing.T) Counter{
		"redis":  func(t *testing.T) Counter { c, _ := newRedisCounter(t); return c },
		"memory": func(t *testing.T) Counter { return NewMemoryCounter() },
	}

	for name, newCounter := range counters {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
			limiter := New(newCounter(t), zap.NewNop().Sugar(), WithClock(clock.Now))

			for i := 0; i < 10; i++ {
				assert.True(t, limiter.Allow(ctx, "1.2.3.4", 10, time.Second), "第 %d 次请求应放行", i+1)
			}
			assert.False(t, limiter.Allow(ctx, "1.2.3.4", 10, time.Second), "第 11 次请求应被拒绝")

			// 其他客户端不受影响
			assert.True(t, limiter.Allow(ctx, "5.6.7.8", 10, time.Second))

			// 新窗口重新计数
			clock.t = clock.t.Add(time.Second)
			assert.True(t, limiter.Allow(ctx, "1.2.3.4", 10, time.Second))
		})
	}
}

func TestAllow_KeyLayoutAndTTL(t *testing.T) {
	counter, mr := newRedisCounter(t)
	clock := &fakeClock{t: time.Unix(1_700_000_003, 0)}
	limiter := New(counter, zap.NewNop().Sugar(), WithClock(clock.Now))

	require.True(t, limiter.Allow(ctx, "10.0.0.1", 5, 2*time.Second))

	key := "rl:10.0.0.1:850000001"
	require.True(t, mr.Exists(key))
	assert.Equal(t, 12*time.Second, mr.TTL(key))
	v, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

type brokenCounter struct{}

func (brokenCounter) Get(context.Context, string) (int64, error) {
	return 0, errors.New("connection refused")
}

func (brokenCounter) Incr(context.Context, string, time.Duration) error {
	return errors.New("connection refused")
}

func TestAllow_FailsOpen(t *testing.T) {
	limiter := New(brokenCounter{}, zap.NewNop().Sugar())
	for i := 0; i < 20; i++ {
		assert.True(t, limiter.Allow(ctx, "1.2.3.4", 1, time.Second))
	}
}

func TestAllow_RedisDownFailsOpen(t *testing.T) {
	counter, mr := newRedisCounter(t)
	limiter := New(counter, zap.NewNop().Sugar())
	mr.Close()

	assert.True(t, limiter.Allow(ctx, "1.2.3.4", 1, time.Second))
	assert.True(t, limiter.Allow(ctx, "1.2.3.4", 1, time.Second))
}

func TestMemoryCounter_Expires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	c := NewMemoryCounter()
	c.now = clock.Now

	require.NoError(t, c.Incr(ctx, "k", 5*time.Second))
	require.NoError(t, c.Incr(ctx, "k", 5*time.Second))
	n, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	clock.t = clock.t.Add(5 * time.Second)
	n, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Zero(t, n)
}
