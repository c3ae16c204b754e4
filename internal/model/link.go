package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Link 短链接模型
type Link struct {
	ID           string         `gorm:"primarykey;size:36" json:"id"`
	Slug         string         `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	OriginalURL  string         `gorm:"type:text;not null" json:"original_url"`
	OwnerID      string         `gorm:"size:36;index" json:"owner_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ExpiresAt    *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	Tags         []string       `gorm:"serializer:json" json:"tags,omitempty"`
	ClickCount   int64          `gorm:"not null;default:0" json:"click_count"`
	Metadata     map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
}

// TableName 指定表名
func (Link) TableName() string {
	return "links"
}

// BeforeCreate 生成主键
func (l *Link) BeforeCreate(*gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// IsExpired 在给定时间点是否已过期
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// HasPassword 是否设置了访问密码
func (l *Link) HasPassword() bool {
	return l.PasswordHash != ""
}

// SetPassword 加密并设置访问密码，空字符串表示取消密码
func (l *Link) SetPassword(password string) error {
	if password == "" {
		l.PasswordHash = ""
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	l.PasswordHash = string(hash)
	return nil
}

// CheckPassword 校验访问密码
func (l *Link) CheckPassword(password string) bool {
	if l.PasswordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(l.PasswordHash), []byte(password)) == nil
}
