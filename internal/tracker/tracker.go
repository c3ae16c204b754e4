// Package tracker 记录跳转后的点击事件。
//
// 追踪在响应发出之后异步执行，所有错误只记录日志，不会影响跳转。
package tracker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"shortlink-service/internal/metrics"
	"shortlink-service/internal/model"
	"shortlink-service/internal/store"

	"go.uber.org/zap"
)

// ipHashLength 只保存哈希前缀
const ipHashLength = 16

// RawClick 请求侧采集到的原始点击信息
type RawClick struct {
	Slug      string
	IP        string
	UserAgent string
	Referrer  string
	Country   string
	City      string
	Timestamp time.Time
}

// Store 追踪所需的存储操作
type Store interface {
	LinkIDBySlug(ctx context.Context, slug string) (string, error)
	RecordClick(ctx context.Context, event *model.ClickEvent) error
}

// Tracker 把原始点击转换为 ClickEvent 并写入存储
type Tracker struct {
	store  Store
	salt   string
	now    func() time.Time
	logger *zap.SugaredLogger
}

// New 创建追踪器；salt 用于 IP 匿名化
func New(s Store, salt string, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		store:  s,
		salt:   salt,
		now:    time.Now,
		logger: logger.Named("tracker"),
	}
}

// Track 记录一次点击，不返回错误
func (t *Tracker) Track(ctx context.Context, raw RawClick) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Clicks.WithLabelValues("failed").Inc()
			t.logger.Errorw("点击追踪发生 panic", "slug", raw.Slug, "panic", r)
		}
	}()

	err := t.record(ctx, raw)
	switch {
	case err == nil:
		metrics.Clicks.WithLabelValues("recorded").Inc()
	case errors.Is(err, store.ErrNotFound):
		// 跳转后链接被删除，丢弃该事件
		metrics.Clicks.WithLabelValues("orphaned").Inc()
		t.logger.Debugw("链接已不存在，丢弃点击", "slug", raw.Slug)
	default:
		metrics.Clicks.WithLabelValues("failed").Inc()
		t.logger.Errorw("记录点击失败", "slug", raw.Slug, "error", err)
	}
}

func (t *Tracker) record(ctx context.Context, raw RawClick) error {
	linkID, err := t.store.LinkIDBySlug(ctx, raw.Slug)
	if err != nil {
		return err
	}
	return t.store.RecordClick(ctx, t.buildEvent(linkID, raw))
}

func (t *Tracker) buildEvent(linkID string, raw RawClick) *model.ClickEvent {
	device := ParseUserAgent(raw.UserAgent)
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}
	return &model.ClickEvent{
		LinkID:        linkID,
		Timestamp:     ts.UTC(),
		Country:       orDefault(raw.Country, unknown),
		City:          orDefault(raw.City, unknown),
		DeviceType:    device.Type,
		Browser:       device.Browser,
		OS:            device.OS,
		Referrer:      orDefault(raw.Referrer, "Direct"),
		IPAddressHash: HashIP(raw.IP, t.salt),
	}
}

// HashIP 加盐 SHA-256 后取十六进制前缀；ip 为空时返回空串
func HashIP(ip, salt string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip + salt))
	return hex.EncodeToString(sum[:])[:ipHashLength]
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
