package tracker

import (
	"context"
	"sync"

	"shortlink-service/internal/metrics"

	"go.uber.org/zap"
)

// Dispatcher 有界队列加固定数量的 worker，跳转处理器只负责入队
type Dispatcher struct {
	tracker *Tracker
	queue   chan RawClick
	workers int

	mu      sync.RWMutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	logger  *zap.SugaredLogger
}

// NewDispatcher 创建分发器
func NewDispatcher(tracker *Tracker, queueSize, workers int, logger *zap.SugaredLogger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		tracker: tracker,
		queue:   make(chan RawClick, queueSize),
		workers: workers,
		logger:  logger.Named("dispatcher"),
	}
}

// Start 启动 worker
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	d.logger.Infow("点击追踪 worker 已启动", "workers", d.workers, "queue", cap(d.queue))
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for raw := range d.queue {
		metrics.TrackQueueDepth.Set(float64(len(d.queue)))
		// 与请求生命周期无关，使用独立的 context
		d.tracker.Track(context.Background(), raw)
	}
}

// Enqueue 非阻塞入队；队列已满或已停止时丢弃并返回 false
func (d *Dispatcher) Enqueue(raw RawClick) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.Clicks.WithLabelValues("dropped").Inc()
		return false
	}
	select {
	case d.queue <- raw:
		metrics.TrackQueueDepth.Set(float64(len(d.queue)))
		return true
	default:
		metrics.Clicks.WithLabelValues("dropped").Inc()
		d.logger.Warnw("追踪队列已满，丢弃点击", "slug", raw.Slug)
		return false
	}
}

// Stop 停止接收新事件并等待队列排空；ctx 到期时返回 ctx 的错误
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		// 未启动时在当前 goroutine 中处理剩余事件
		for raw := range d.queue {
			d.tracker.Track(ctx, raw)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.logger.Info("点击追踪队列已排空")
		return nil
	case <-ctx.Done():
		d.logger.Warnw("等待追踪队列排空超时", "remaining", len(d.queue))
		return ctx.Err()
	}
}
