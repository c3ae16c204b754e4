package ratelimit

import (
	"context"
	"sync"
	"time"
)

// sweepEvery 每隔多少次写入清理一次过期键
const sweepEvery = 1024

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter 进程内计数存储，未配置 Redis 时使用
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	writes  int
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return 0, nil
	}
	return e.count, nil
}

func (c *MemoryCounter) Incr(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &memoryEntry{}
		c.entries[key] = e
	}
	e.count++
	e.expiresAt = now.Add(ttl)

	c.writes++
	if c.writes%sweepEvery == 0 {
		for k, v := range c.entries {
			if !now.Before(v.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	return nil
}

// Len 当前保存的键数量
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
