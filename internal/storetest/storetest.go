// Package storetest 为各包的测试提供内存 SQLite 存储
package storetest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"shortlink-service/internal/model"
	"shortlink-service/internal/store"
	"shortlink-service/pkg/database"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB 打开一个测试专用的内存数据库，测试结束时关闭
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("无法连接到内存数据库: %v", err)
	}

	// 单连接让并发写入排队，避免 SQLite 表锁错误
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// New 创建不带缓存的存储
func New(t testing.TB) *store.Store {
	t.Helper()
	return store.New(OpenDB(t), nil, 0, zap.NewNop().Sugar())
}

// NewWithCache 创建带 Redis 解析缓存的存储
func NewWithCache(t testing.TB, rdb *redis.Client, ttl time.Duration) *store.Store {
	t.Helper()
	return store.New(OpenDB(t), rdb, ttl, zap.NewNop().Sugar())
}

// SeedLink 写入一条启用的链接
func SeedLink(t testing.TB, s *store.Store, slug, url string, opts ...func(*model.Link)) *model.Link {
	t.Helper()
	link := &model.Link{Slug: slug, OriginalURL: url, IsActive: true, CreatedAt: time.Now().UTC()}
	for _, opt := range opts {
		opt(link)
	}
	if err := s.DB().Create(link).Error; err != nil {
		t.Fatalf("写入测试链接失败: %v", err)
	}
	return link
}

// SeedClick 写入一条指定时间的点击事件，不修改计数
func SeedClick(t testing.TB, s *store.Store, linkID string, at time.Time, device string) *model.ClickEvent {
	t.Helper()
	event := &model.ClickEvent{
		LinkID:     linkID,
		Timestamp:  at.UTC(),
		DeviceType: device,
		Country:    "Unknown",
		City:       "Unknown",
		Browser:    "Unknown",
		OS:         "Unknown",
		Referrer:   "Direct",
	}
	if err := s.DB().Create(event).Error; err != nil {
		t.Fatalf("写入测试点击失败: %v", err)
	}
	return event
}
