// Package ratelimit 固定窗口计数限流。
//
// 计数键为 rl:<client>:<floor(now/window)>，先读后增，不保证端到端原子，
// 只用于软限流。计数存储不可用时放行。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const keyPrefix = "rl:"

// keyTTLSlack 计数键的过期时间比窗口多出的部分
const keyTTLSlack = 10 * time.Second

// Counter 限流计数的存储
type Counter interface {
	Get(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string, ttl time.Duration) error
}

// Limiter 固定窗口限流器
type Limiter struct {
	counter Counter
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// Option 限流器选项
type Option func(*Limiter)

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New 创建限流器
func New(counter Counter, logger *zap.SugaredLogger, opts ...Option) *Limiter {
	l := &Limiter{
		counter: counter,
		now:     time.Now,
		logger:  logger.Named("ratelimit"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow 当前窗口内增加前的计数小于 limit 时放行
func (l *Limiter) Allow(ctx context.Context, clientKey string, limit int64, window time.Duration) bool {
	if window < time.Second {
		window = time.Second
	}
	seconds := int64(window / time.Second)
	key := fmt.Sprintf("%s%s:%d", keyPrefix, clientKey, l.now().Unix()/seconds)

	count, err := l.counter.Get(ctx, key)
	if err != nil {
		l.logger.Warnw("读取限流计数失败，放行请求", "client", clientKey, "error", err)
		return true
	}
	if count >= limit {
		return false
	}

	if err := l.counter.Incr(ctx, key, window+keyTTLSlack); err != nil {
		l.logger.Warnw("更新限流计数失败", "client", clientKey, "error", err)
	}
	return true
}
