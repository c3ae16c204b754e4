package aggregator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"shortlink-service/internal/model"
	"shortlink-service/internal/store"
	"shortlink-service/internal/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	ctx = context.Background()
	// 任务在 3 月 10 日 00:05 UTC 执行，汇总 3 月 9 日
	runAt     = time.Date(2026, 3, 10, 0, 5, 0, 0, time.UTC)
	yesterday = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
)

func newAggregator(s Store, opts Options) *Aggregator {
	return New(s, opts, zap.NewNop().Sugar())
}

func statsByLink(t *testing.T, s *store.Store, date string) map[string]model.DailyLinkStat {
	t.Helper()
	var rows []model.DailyLinkStat
	require.NoError(t, s.DB().Where("date = ?", date).Find(&rows).Error)
	out := make(map[string]model.DailyLinkStat, len(rows))
	for _, r := range rows {
		out[r.LinkID] = r
	}
	return out
}

func TestPreviousDay(t *testing.T) {
	assert.Equal(t, yesterday, PreviousDay(runAt))
	assert.Equal(t, yesterday, PreviousDay(time.Date(2026, 3, 10, 23, 59, 59, 0, time.UTC)))

	// 东八区 3 月 10 日 01:00 是 UTC 3 月 9 日 17:00
	shanghai := time.FixedZone("UTC+8", 8*3600)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		PreviousDay(time.Date(2026, 3, 10, 1, 0, 0, 0, shanghai)))
}

func TestRunDaily_RollsUpPreviousDay(t *testing.T) {
	s := storetest.New(t)
	a := storetest.SeedLink(t, s, "aaa", "https://a.example")
	b := storetest.SeedLink(t, s, "bbb", "https://b.example")
	idle := storetest.SeedLink(t, s, "idle", "https://idle.example")

	storetest.SeedClick(t, s, a.ID, yesterday.Add(time.Hour), "desktop")
	storetest.SeedClick(t, s, a.ID, yesterday.Add(23*time.Hour), "mobile")
	storetest.SeedClick(t, s, a.ID, yesterday.Add(24*time.Hour), "mobile") // 今天
	storetest.SeedClick(t, s, b.ID, yesterday.Add(-time.Minute), "mobile") // 前天
	storetest.SeedClick(t, s, b.ID, yesterday, "tablet")

	res, err := newAggregator(s, Options{}).RunDaily(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-09", res.Date)
	assert.Equal(t, 2, res.ProcessedLinks)

	stats := statsByLink(t, s, "2026-03-09")
	require.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats[a.ID].Clicks)
	assert.Equal(t, map[string]int64{"desktop": 1, "mobile": 1}, stats[a.ID].Metadata)
	assert.Equal(t, int64(1), stats[b.ID].Clicks)
	_, ok := stats[idle.ID]
	assert.False(t, ok, "没有点击的链接不生成汇总")

	marker, err := s.Marker(ctx, model.StageRollup, "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, int64(2), marker.Rows)
}

func TestRunDaily_IdempotentRerun(t *testing.T) {
	s := storetest.New(t)
	link := storetest.SeedLink(t, s, "again", "https://a.example")
	for i := 0; i < 3; i++ {
		storetest.SeedClick(t, s, link.ID, yesterday.Add(time.Duration(i)*time.Hour), "desktop")
	}

	agg := newAggregator(s, Options{})
	_, err := agg.RunDaily(ctx, runAt)
	require.NoError(t, err)
	_, err = agg.RunDaily(ctx, runAt.Add(time.Hour))
	require.NoError(t, err)

	var rows []model.DailyLinkStat
	require.NoError(t, s.DB().Where("link_id = ?", link.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(3), rows[0].Clicks)
}

func TestRunDaily_PrunesBeyondRetention(t *testing.T) {
	s := storetest.New(t)
	link := storetest.SeedLink(t, s, "old", "https://a.example")
	cutoff := runAt.Add(-30 * 24 * time.Hour)

	storetest.SeedClick(t, s, link.ID, cutoff.Add(-time.Second), "desktop")
	storetest.SeedClick(t, s, link.ID, cutoff.Add(-90*24*time.Hour), "desktop")
	storetest.SeedClick(t, s, link.ID, cutoff.Add(time.Second), "desktop")

	res, err := newAggregator(s, Options{}).RunDaily(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Pruned)
	assert.True(t, cutoff.Equal(res.PruneCutoff))

	var stale int64
	require.NoError(t, s.DB().Model(&model.ClickEvent{}).Where("clicked_at < ?", cutoff).Count(&stale).Error)
	assert.Zero(t, stale)

	marker, err := s.Marker(ctx, model.StagePrune, "2026-03-09")
	require.NoError(t, err)
	assert.Equal(t, int64(2), marker.Rows)
}

// countingStore 记录写入批次，可注入汇总阶段的错误
type countingStore struct {
	*store.Store
	upserts  []int
	countErr error
}

func (c *countingStore) CountClicksByLink(ctx context.Context, start, end time.Time) ([]store.LinkCount, error) {
	if c.countErr != nil {
		return nil, c.countErr
	}
	return c.Store.CountClicksByLink(ctx, start, end)
}

func (c *countingStore) UpsertDailyStats(ctx context.Context, stats []model.DailyLinkStat) error {
	c.upserts = append(c.upserts, len(stats))
	return c.Store.UpsertDailyStats(ctx, stats)
}

func TestRunDaily_WritesInChunks(t *testing.T) {
	s := storetest.New(t)
	for i := 0; i < 120; i++ {
		link := storetest.SeedLink(t, s, fmt.Sprintf("link-%03d", i), "https://a.example")
		storetest.SeedClick(t, s, link.ID, yesterday.Add(time.Minute), "desktop")
	}

	cs := &countingStore{Store: s}
	res, err := newAggregator(cs, Options{ChunkSize: 50}).RunDaily(ctx, runAt)
	require.NoError(t, err)
	assert.Equal(t, 120, res.ProcessedLinks)
	assert.Equal(t, []int{50, 50, 20}, cs.upserts)
	assert.Len(t, statsByLink(t, s, "2026-03-09"), 120)
}

func TestRunDaily_PruneRunsWhenRollupFails(t *testing.T) {
	s := storetest.New(t)
	link := storetest.SeedLink(t, s, "old", "https://a.example")
	storetest.SeedClick(t, s, link.ID, runAt.Add(-45*24*time.Hour), "desktop")

	boom := errors.New("query timeout")
	cs := &countingStore{Store: s, countErr: boom}
	res, err := newAggregator(cs, Options{}).RunDaily(ctx, runAt)

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "rollup 2026-03-09")
	assert.Equal(t, int64(1), res.Pruned)

	_, err = s.Marker(ctx, model.StageRollup, "2026-03-09")
	assert.ErrorIs(t, err, store.ErrNotFound, "失败的阶段不写完成标记")
	_, err = s.Marker(ctx, model.StagePrune, "2026-03-09")
	assert.NoError(t, err)
}

func TestRunForDate_Replay(t *testing.T) {
	s := storetest.New(t)
	link := storetest.SeedLink(t, s, "replay", "https://a.example")
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	storetest.SeedClick(t, s, link.ID, day.Add(5*time.Hour), "desktop")

	res, err := newAggregator(s, Options{}).RunForDate(ctx, day.Add(13*time.Hour), runAt)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", res.Date)
	assert.Equal(t, int64(1), statsByLink(t, s, "2026-03-01")[link.ID].Clicks)
}

func TestRunDaily_NotReentrant(t *testing.T) {
	s := storetest.New(t)
	agg := newAggregator(s, Options{})

	agg.running.Lock()
	_, err := agg.RunDaily(ctx, runAt)
	agg.running.Unlock()
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	_, err = agg.RunDaily(ctx, runAt)
	assert.NoError(t, err)
}

func TestRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	lock := NewRedisLock(rdb, time.Minute)

	release, err := lock.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:aggregator"))

	_, err = NewRedisLock(rdb, time.Minute).Acquire(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// 其他实例持有锁时整次运行被拒绝
	s := storetest.New(t)
	_, err = newAggregator(s, Options{Locker: lock}).RunDaily(ctx, runAt)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	release()
	assert.False(t, mr.Exists("lock:aggregator"))

	_, err = newAggregator(s, Options{Locker: lock}).RunDaily(ctx, runAt)
	assert.NoError(t, err)
	assert.False(t, mr.Exists("lock:aggregator"), "运行结束后释放锁")
}

func TestRedisLock_ExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	lock := NewRedisLock(redis.NewClient(&redis.Options{Addr: mr.Addr()}), 30*time.Second)

	_, err := lock.Acquire(ctx)
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	_, err = lock.Acquire(ctx)
	assert.NoError(t, err)
}

func TestNewScheduler(t *testing.T) {
	agg := newAggregator(storetest.New(t), Options{})

	_, err := NewScheduler(agg, "not a cron spec", zap.NewNop().Sugar())
	assert.Error(t, err)

	sched, err := NewScheduler(agg, "0 5 0 * * *", zap.NewNop().Sugar())
	require.NoError(t, err)
	sched.Start()

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	assert.NoError(t, sched.Stop(stopCtx))
}
