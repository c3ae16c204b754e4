package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout 汇总日期格式
const DateLayout = "2006-01-02"

// DailyLinkStat 每条链接每天一行的点击汇总
type DailyLinkStat struct {
	ID       string           `gorm:"primarykey;size:36" json:"id"`
	LinkID   string           `gorm:"size:36;not null;uniqueIndex:idx_daily_link_date,priority:1" json:"link_id"`
	Date     string           `gorm:"size:10;not null;uniqueIndex:idx_daily_link_date,priority:2" json:"date"`
	Clicks   int64            `gorm:"not null;default:0" json:"clicks"`
	Metadata map[string]int64 `gorm:"serializer:json" json:"metadata,omitempty"`
}

func (DailyLinkStat) TableName() string {
	return "daily_link_stats"
}

func (s *DailyLinkStat) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
