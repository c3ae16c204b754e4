package store

import (
	"context"
	"encoding/json"
	"time"

	"shortlink-service/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	linkCachePrefix = "link:"
	// linkGenPrefix 每次修改链接时递增，写缓存前比较，防止并发读把旧快照写回
	linkGenPrefix = "linkgen:"
	// 代数键只需比一次读库的时间长得多
	linkGenTTL = 7 * 24 * time.Hour
)

// 代数未变化时才写入快照
var setIfGenerationScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[1]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
return 1
`)

// Store 短链接的持久化存储，解析与点击计数的唯一数据源
type Store struct {
	db       *gorm.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *zap.SugaredLogger
}

// New 创建存储；redisClient 为 nil 或 cacheTTL 为 0 时不使用解析缓存
func New(db *gorm.DB, redisClient *redis.Client, cacheTTL time.Duration, logger *zap.SugaredLogger) *Store {
	return &Store{
		db:       db,
		redis:    redisClient,
		cacheTTL: cacheTTL,
		logger:   logger.Named("store"),
	}
}

// DB 返回底层连接，供迁移和测试使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify(err)
	}
	return classify(sqlDB.PingContext(ctx))
}

// Snapshot 解析一个短码所需的最小字段集合，可安全缓存
type Snapshot struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	OriginalURL string     `json:"original_url"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Protected   bool       `json:"protected"`
}

// IsExpired 在给定时间点是否已过期
func (s *Snapshot) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

func snapshotOf(link *model.Link) *Snapshot {
	return &Snapshot{
		ID:          link.ID,
		Slug:        link.Slug,
		OriginalURL: link.OriginalURL,
		ExpiresAt:   link.ExpiresAt,
		Protected:   link.HasPassword(),
	}
}

func (s *Store) cacheEnabled() bool {
	return s.redis != nil && s.cacheTTL > 0
}

func (s *Store) cachedSnapshot(ctx context.Context, slug string) *Snapshot {
	if !s.cacheEnabled() {
		return nil
	}
	data, err := s.redis.Get(ctx, linkCachePrefix+slug).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debugw("读取解析缓存失败", "slug", slug, "error", err)
		}
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return &snap
}

// generation 读库之前取得当前代数；读取失败时返回 false，本次不写缓存
func (s *Store) generation(ctx context.Context, slug string) (string, bool) {
	if !s.cacheEnabled() {
		return "", false
	}
	gen, err := s.redis.Get(ctx, linkGenPrefix+slug).Result()
	switch {
	case err == redis.Nil:
		return "0", true
	case err != nil:
		s.logger.Debugw("读取缓存代数失败", "slug", slug, "error", err)
		return "", false
	}
	return gen, true
}

// cacheSnapshot 只有在 gen 之后没有发生 invalidate 时才写入
func (s *Store) cacheSnapshot(ctx context.Context, snap *Snapshot, gen string) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	keys := []string{linkGenPrefix + snap.Slug, linkCachePrefix + snap.Slug}
	written, err := setIfGenerationScript.Run(ctx, s.redis, keys, gen, data, s.cacheTTL.Milliseconds()).Int()
	if err != nil {
		s.logger.Debugw("写入解析缓存失败", "slug", snap.Slug, "error", err)
		return
	}
	if written == 0 {
		s.logger.Debugw("链接已被修改，放弃写入旧快照", "slug", snap.Slug)
	}
}

// invalidate 递增代数并删除解析缓存，链接被修改或删除后调用
func (s *Store) invalidate(ctx context.Context, slug string) {
	if s.redis == nil {
		return
	}
	pipe := s.redis.TxPipeline()
	pipe.Incr(ctx, linkGenPrefix+slug)
	pipe.Expire(ctx, linkGenPrefix+slug, linkGenTTL)
	pipe.Del(ctx, linkCachePrefix+slug)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warnw("删除解析缓存失败", "slug", slug, "error", err)
	}
}
