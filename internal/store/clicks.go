package store

import (
	"context"
	"time"

	"shortlink-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordClick 写入一条点击事件并原子地累加链接计数
func (s *Store) RecordClick(ctx context.Context, event *model.ClickEvent) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		// 原子自增，不做读改写，避免并发点击丢失更新
		return tx.Model(&model.Link{}).
			Where("id = ?", event.LinkID).
			UpdateColumn("click_count", gorm.Expr("click_count + ?", 1)).Error
	})
	return classify(err)
}

// ClickCount 读取链接当前的计数
func (s *Store) ClickCount(ctx context.Context, linkID string) (int64, error) {
	var counts []int64
	err := s.db.WithContext(ctx).Model(&model.Link{}).Where("id = ?", linkID).Pluck("click_count", &counts).Error
	if err != nil {
		return 0, classify(err)
	}
	if len(counts) == 0 {
		return 0, ErrNotFound
	}
	return counts[0], nil
}

// RecentClicks 按时间倒序返回最近的点击事件
func (s *Store) RecentClicks(ctx context.Context, linkID string, limit int) ([]model.ClickEvent, error) {
	var events []model.ClickEvent
	err := s.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("clicked_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, classify(err)
	}
	return events, nil
}

// LinkCount 某条链接在窗口内的点击数
type LinkCount struct {
	LinkID string
	Clicks int64
}

// CountClicksByLink 统计 [start, end) 内每条链接的点击数
func (s *Store) CountClicksByLink(ctx context.Context, start, end time.Time) ([]LinkCount, error) {
	var rows []LinkCount
	err := s.db.WithContext(ctx).Model(&model.ClickEvent{}).
		Select("link_id, COUNT(*) AS clicks").
		Where("clicked_at >= ? AND clicked_at < ?", start.UTC(), end.UTC()).
		Group("link_id").
		Order("link_id").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// DeviceBreakdown 统计 [start, end) 内每条链接按设备类型的点击数
func (s *Store) DeviceBreakdown(ctx context.Context, start, end time.Time) (map[string]map[string]int64, error) {
	var rows []struct {
		LinkID     string
		DeviceType string
		Clicks     int64
	}
	err := s.db.WithContext(ctx).Model(&model.ClickEvent{}).
		Select("link_id, device_type, COUNT(*) AS clicks").
		Where("clicked_at >= ? AND clicked_at < ?", start.UTC(), end.UTC()).
		Group("link_id, device_type").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}

	out := make(map[string]map[string]int64)
	for _, r := range rows {
		if out[r.LinkID] == nil {
			out[r.LinkID] = make(map[string]int64)
		}
		out[r.LinkID][r.DeviceType] += r.Clicks
	}
	return out, nil
}

// UpsertDailyStats 按 (link_id, date) 写入汇总，已存在则覆盖点击数
func (s *Store) UpsertDailyStats(ctx context.Context, stats []model.DailyLinkStat) error {
	if len(stats) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "link_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"clicks", "metadata"}),
	}).Create(&stats).Error
	return classify(err)
}

// PruneClicksBefore 删除早于 cutoff 的点击事件，返回删除行数
func (s *Store) PruneClicksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("clicked_at < ?", cutoff.UTC()).Delete(&model.ClickEvent{})
	if res.Error != nil {
		return 0, classify(res.Error)
	}
	return res.RowsAffected, nil
}

// DailyStats 按日期升序返回链接的每日汇总
func (s *Store) DailyStats(ctx context.Context, linkID string) ([]model.DailyLinkStat, error) {
	var stats []model.DailyLinkStat
	err := s.db.WithContext(ctx).Where("link_id = ?", linkID).Order("date").Find(&stats).Error
	if err != nil {
		return nil, classify(err)
	}
	return stats, nil
}

// MarkStage 记录汇总任务某阶段成功完成
func (s *Store) MarkStage(ctx context.Context, stage, date string, rows int64, at time.Time) error {
	marker := model.AggregationMarker{Stage: stage, Date: date, Rows: rows, CompletedAt: at.UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stage"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"row_count", "completed_at"}),
	}).Create(&marker).Error
	return classify(err)
}

// Marker 读取某阶段某天的完成记录
func (s *Store) Marker(ctx context.Context, stage, date string) (*model.AggregationMarker, error) {
	var marker model.AggregationMarker
	if err := s.db.WithContext(ctx).Where("stage = ? AND date = ?", stage, date).First(&marker).Error; err != nil {
		return nil, classify(err)
	}
	return &marker, nil
}
