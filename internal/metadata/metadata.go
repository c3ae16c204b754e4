// Package metadata 为社交爬虫抓取目标页面的预览信息，结果缓存在 Redis 中。
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shortlink-service/internal/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const cachePrefix = "meta:"

var (
	// ErrInvalidURL 目标地址不是合法的 http/https URL
	ErrInvalidURL = errors.New("invalid url")
	// ErrUpstream 目标站点返回非 2xx
	ErrUpstream = errors.New("upstream returned an error status")
	// ErrFetch 请求目标站点失败
	ErrFetch = errors.New("failed to fetch url")
)

// Preview 页面预览信息
type Preview struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Options 抓取参数
type Options struct {
	Timeout      time.Duration
	CacheTTL     time.Duration
	PerSecond    float64
	Burst        int
	UserAgent    string
	MaxBodyBytes int64

	// AllowPrivateNetworks 允许抓取内网与回环地址，默认拒绝
	AllowPrivateNetworks bool
}

// Service 元数据抓取服务
type Service struct {
	client   *http.Client
	cache    *redis.Client
	cacheTTL time.Duration
	limiter  *rate.Limiter
	ua       string
	maxBody  int64
	logger   *zap.SugaredLogger
}

// New 创建服务；cache 为 nil 时每次都抓取
func New(cache *redis.Client, opts Options, logger *zap.SugaredLogger) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.PerSecond <= 0 {
		opts.PerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Shlink-Metadata-Bot/1.0"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	return &Service{
		client:   newHTTPClient(opts.Timeout, opts.AllowPrivateNetworks),
		cache:    cache,
		cacheTTL: opts.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(opts.PerSecond), opts.Burst),
		ua:       opts.UserAgent,
		maxBody:  opts.MaxBodyBytes,
		logger:   logger.Named("metadata"),
	}
}

// ValidateURL 只接受带主机名的 http/https 地址
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// Lookup 返回目标页面的预览信息，优先读缓存
func (s *Service) Lookup(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	if p := s.cached(ctx, target); p != nil {
		metrics.MetadataFetches.WithLabelValues("cache_hit").Inc()
		return p, nil
	}

	p, err := s.fetch(ctx, target)
	if err != nil {
		metrics.MetadataFetches.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.MetadataFetches.WithLabelValues("fetched").Inc()
	s.store(ctx, p)
	return p, nil
}

func (s *Service) fetch(ctx context.Context, target string) (*Preview, error) {
	// 限制对外请求速率，避免被当作爬虫封禁
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", s.ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) || errors.Is(err, ErrInvalidURL) {
			s.logger.Warnw("拒绝抓取内网地址", "url", target, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrBlockedAddress, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUpstream, resp.StatusCode)
	}

	p := Extract(io.LimitReader(resp.Body, s.maxBody))
	p.URL = target
	return &p, nil
}

func (s *Service) cached(ctx context.Context, target string) *Preview {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, cachePrefix+target).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debugw("读取元数据缓存失败", "url", target, "error", err)
		}
		return nil
	}
	var p Preview
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	return &p
}

func (s *Service) store(ctx context.Context, p *Preview) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cachePrefix+p.URL, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warnw("写入元数据缓存失败", "url", p.URL, "error", err)
	}
}
