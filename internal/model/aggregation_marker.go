package model

import "time"

// 汇总任务阶段
const (
	StageRollup = "rollup"
	StagePrune  = "prune"
)

// AggregationMarker 记录某天某阶段最近一次成功完成的时间，便于人工补跑
type AggregationMarker struct {
	Stage       string    `gorm:"primarykey;size:16" json:"stage"`
	Date        string    `gorm:"primarykey;size:10" json:"date"`
	Rows        int64     `gorm:"column:row_count" json:"rows"`
	CompletedAt time.Time `json:"completed_at"`
}

func (AggregationMarker) TableName() string {
	return "aggregation_markers"
}

// All 返回需要迁移的全部模型
func All() []any {
	return []any{&Link{}, &ClickEvent{}, &DailyLinkStat{}, &ApiKey{}, &AggregationMarker{}}
}
