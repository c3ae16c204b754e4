package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClickEvent 单次点击事件，写入后不再修改
type ClickEvent struct {
	ID            string    `gorm:"primarykey;size:36" json:"id"`
	LinkID        string    `gorm:"size:36;not null;index:idx_click_link_time,priority:1" json:"link_id"`
	Timestamp     time.Time `gorm:"column:clicked_at;not null;index;index:idx_click_link_time,priority:2" json:"timestamp"`
	Country       string    `gorm:"size:100" json:"country"`
	City          string    `gorm:"size:100" json:"city"`
	DeviceType    string    `gorm:"size:32" json:"device_type"`
	Browser       string    `gorm:"size:64" json:"browser"`
	OS            string    `gorm:"column:os;size:64" json:"os"`
	Referrer      string    `gorm:"type:text" json:"referrer"`
	IPAddressHash string    `gorm:"column:ip_address_hash;size:16" json:"ip_address_hash"`
}

func (ClickEvent) TableName() string {
	return "click_events"
}

func (c *ClickEvent) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
