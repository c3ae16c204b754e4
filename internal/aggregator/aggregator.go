// Package aggregator 每日汇总点击并清理过期的原始事件。
//
// 汇总与清理是两个独立阶段，各自写入完成标记；汇总失败不会阻止清理。
// 日期按 UTC 计算。
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shortlink-service/internal/metrics"
	"shortlink-service/internal/model"
	"shortlink-service/internal/store"

	"go.uber.org/zap"
)

// ErrAlreadyRunning 已有汇总任务在执行
var ErrAlreadyRunning = errors.New("aggregation already running")

const (
	DefaultChunkSize = 50
	DefaultRetention = 30 * 24 * time.Hour
)

// Store 汇总所需的存储操作
type Store interface {
	CountClicksByLink(ctx context.Context, start, end time.Time) ([]store.LinkCount, error)
	DeviceBreakdown(ctx context.Context, start, end time.Time) (map[string]map[string]int64, error)
	UpsertDailyStats(ctx context.Context, stats []model.DailyLinkStat) error
	PruneClicksBefore(ctx context.Context, cutoff time.Time) (int64, error)
	MarkStage(ctx context.Context, stage, date string, rows int64, at time.Time) error
}

// Locker 跨实例互斥；Acquire 失败时返回 ErrAlreadyRunning
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Result 一次运行的结果
type Result struct {
	Date           string    `json:"date"`
	ProcessedLinks int       `json:"processedLinks"`
	Pruned         int64     `json:"pruned"`
	PruneCutoff    time.Time `json:"pruneCutoff"`
}

// Aggregator 每日汇总任务
type Aggregator struct {
	store     Store
	locker    Locker
	chunkSize int
	retention time.Duration
	running   sync.Mutex
	logger    *zap.SugaredLogger
}

// Options 汇总任务参数，零值使用默认值
type Options struct {
	ChunkSize int
	Retention time.Duration
	// Locker 为 nil 时只做进程内互斥
	Locker Locker
}

// New 创建汇总任务
func New(s Store, opts Options, logger *zap.SugaredLogger) *Aggregator {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Aggregator{
		store:     s,
		locker:    opts.Locker,
		chunkSize: opts.ChunkSize,
		retention: opts.Retention,
		logger:    logger.Named("aggregator"),
	}
}

// PreviousDay 返回 now 所在 UTC 日期的前一天零点
func PreviousDay(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

// RunDaily 汇总 now 的前一个 UTC 自然日，并清理保留期之前的事件
func (a *Aggregator) RunDaily(ctx context.Context, now time.Time) (Result, error) {
	return a.RunForDate(ctx, PreviousDay(now), now)
}

// RunForDate 汇总指定日期，用于手动重放；清理的截止时间仍以 now 计算
func (a *Aggregator) RunForDate(ctx context.Context, day, now time.Time) (Result, error) {
	if !a.running.TryLock() {
		return Result{}, ErrAlreadyRunning
	}
	defer a.running.Unlock()

	if a.locker != nil {
		release, err := a.locker.Acquire(ctx)
		if err != nil {
			return Result{}, err
		}
		defer release()
	}

	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	res := Result{
		Date:        start.Format(model.DateLayout),
		PruneCutoff: now.UTC().Add(-a.retention),
	}

	processed, rollupErr := a.rollup(ctx, start, now)
	res.ProcessedLinks = processed
	if rollupErr != nil {
		metrics.AggregationRuns.WithLabelValues(model.StageRollup, "failed").Inc()
		a.logger.Errorw("汇总阶段失败", "date", res.Date, "stage", model.StageRollup,
			"processed", processed, "error", rollupErr)
		rollupErr = fmt.Errorf("%s %s: %w", model.StageRollup, res.Date, rollupErr)
	} else {
		metrics.AggregationRuns.WithLabelValues(model.StageRollup, "ok").Inc()
	}

	pruned, pruneErr := a.prune(ctx, res.Date, res.PruneCutoff, now)
	res.Pruned = pruned
	if pruneErr != nil {
		metrics.AggregationRuns.WithLabelValues(model.StagePrune, "failed").Inc()
		a.logger.Errorw("清理阶段失败", "date", res.Date, "stage", model.StagePrune,
			"cutoff", res.PruneCutoff, "error", pruneErr)
		pruneErr = fmt.Errorf("%s %s: %w", model.StagePrune, res.Date, pruneErr)
	} else {
		metrics.AggregationRuns.WithLabelValues(model.StagePrune, "ok").Inc()
	}

	if err := errors.Join(rollupErr, pruneErr); err != nil {
		return res, err
	}
	a.logger.Infow("每日汇总完成", "date", res.Date, "links", res.ProcessedLinks, "pruned", res.Pruned)
	return res, nil
}

// rollup 按链接统计 [start, start+24h) 的点击并分批写入；返回已写入的链接数
func (a *Aggregator) rollup(ctx context.Context, start, now time.Time) (int, error) {
	end := start.Add(24 * time.Hour)
	date := start.Format(model.DateLayout)

	counts, err := a.store.CountClicksByLink(ctx, start, end)
	if err != nil {
		return 0, err
	}
	breakdown, err := a.store.DeviceBreakdown(ctx, start, end)
	if err != nil {
		return 0, err
	}

	stats := make([]model.DailyLinkStat, 0, len(counts))
	for _, c := range counts {
		stats = append(stats, model.DailyLinkStat{
			LinkID:   c.LinkID,
			Date:     date,
			Clicks:   c.Clicks,
			Metadata: breakdown[c.LinkID],
		})
	}

	written := 0
	for i := 0; i < len(stats); i += a.chunkSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		chunk := stats[i:min(i+a.chunkSize, len(stats))]
		if err := a.store.UpsertDailyStats(ctx, chunk); err != nil {
			return written, fmt.Errorf("写入第 %d 批失败: %w", i/a.chunkSize+1, err)
		}
		written += len(chunk)
	}
	metrics.AggregationRows.WithLabelValues(model.StageRollup).Add(float64(written))

	if err := a.store.MarkStage(ctx, model.StageRollup, date, int64(written), now.UTC()); err != nil {
		return written, err
	}
	return written, nil
}

func (a *Aggregator) prune(ctx context.Context, date string, cutoff, now time.Time) (int64, error) {
	deleted, err := a.store.PruneClicksBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.AggregationRows.WithLabelValues(model.StagePrune).Add(float64(deleted))
	if err := a.store.MarkStage(ctx, model.StagePrune, date, deleted, now.UTC()); err != nil {
		return deleted, err
	}
	return deleted, nil
}
