package model

import "time"

// ApiKey 外部调用方的 API 密钥，由账户系统维护，这里只读取
type ApiKey struct {
	ID         string     `gorm:"primarykey;size:36" json:"id"`
	UserID     string     `gorm:"size:36;not null;index" json:"user_id"`
	Key        string     `gorm:"size:128;uniqueIndex;not null" json:"-"`
	Name       string     `gorm:"size:100" json:"name"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (ApiKey) TableName() string {
	return "api_keys"
}
