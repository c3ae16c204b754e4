// Package analytics 汇总单条链接的点击数据并导出 CSV
package analytics

import (
	"context"
	"sort"

	"shortlink-service/internal/model"
)

// RecentLimit 用于设备、国家分布的最近点击条数
const RecentLimit = 1000

// Source 分析所需的存储操作
type Source interface {
	DailyStats(ctx context.Context, linkID string) ([]model.DailyLinkStat, error)
	RecentClicks(ctx context.Context, linkID string, limit int) ([]model.ClickEvent, error)
}

// DailyPoint 每日趋势中的一个点
type DailyPoint struct {
	Date   string `json:"date"`
	Clicks int64  `json:"clicks"`
}

// Bucket 分布中的一项
type Bucket struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Summary 单条链接的分析结果
type Summary struct {
	Slug         string       `json:"slug"`
	TotalClicks  int64        `json:"totalClicks"`
	RecentClicks int          `json:"recentClicks"`
	Daily        []DailyPoint `json:"daily"`
	Devices      []Bucket     `json:"devices"`
	Countries    []Bucket     `json:"countries"`
}

// Build 组合每日汇总和最近点击的分布
func Build(ctx context.Context, src Source, link *model.Link) (*Summary, error) {
	daily, err := src.DailyStats(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	recent, err := src.RecentClicks(ctx, link.ID, RecentLimit)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Slug:         link.Slug,
		TotalClicks:  link.ClickCount,
		RecentClicks: len(recent),
		Daily:        make([]DailyPoint, 0, len(daily)),
	}
	for _, d := range daily {
		s.Daily = append(s.Daily, DailyPoint{Date: d.Date, Clicks: d.Clicks})
	}

	devices := map[string]int64{}
	countries := map[string]int64{}
	for _, c := range recent {
		devices[orUnknown(c.DeviceType)]++
		countries[orUnknown(c.Country)]++
	}
	s.Devices = buckets(devices)
	s.Countries = buckets(countries)
	return s, nil
}

// buckets 按数量降序，数量相同按名称排序
func buckets(counts map[string]int64) []Bucket {
	out := make([]Bucket, 0, len(counts))
	for name, v := range counts {
		out = append(out, Bucket{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
