// Package resolver 决定一次短码访问的结果。
//
// 解析只读存储；点击追踪在返回跳转决定时入队，由后台 worker 执行。
package resolver

import (
	"context"
	"errors"
	"net/url"
	"time"

	"shortlink-service/internal/metrics"
	"shortlink-service/internal/store"
	"shortlink-service/internal/tracker"

	"go.uber.org/zap"
)

// Kind 解析结果类型
type Kind int

const (
	NotFound Kind = iota
	BotPreview
	Expired
	PasswordRequired
	Redirect
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case BotPreview:
		return "bot_preview"
	case Expired:
		return "expired"
	case PasswordRequired:
		return "password_required"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// 拦截页路径
const (
	MetadataPath = "/metadata"
	ExpiredPath  = "/expired"
	PasswordPath = "/password/"
)

// Decision 解析结果；Location 为需要跳转的地址，NotFound 时为空
type Decision struct {
	Kind     Kind
	Location string
}

// RequestContext 解析所需的请求信息
type RequestContext struct {
	UserAgent string
	IP        string
	Referrer  string
	Country   string
	City      string
	// GrantToken link_access_<slug> Cookie 的值
	GrantToken string
}

// LinkSource 按短码查找启用的链接
type LinkSource interface {
	FindActiveBySlug(ctx context.Context, slug string) (*store.Snapshot, error)
}

// GrantVerifier 校验密码访问凭证
type GrantVerifier interface {
	Verify(token, slug string, now time.Time) error
}

// ClickQueue 点击追踪队列，入队不得阻塞
type ClickQueue interface {
	Enqueue(raw tracker.RawClick) bool
}

// Resolver 短码解析器
type Resolver struct {
	links  LinkSource
	grants GrantVerifier
	clicks ClickQueue
	now    func() time.Time
	logger *zap.SugaredLogger
}

// Option 解析器选项
type Option func(*Resolver)

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New 创建解析器
func New(links LinkSource, grants GrantVerifier, clicks ClickQueue, logger *zap.SugaredLogger, opts ...Option) *Resolver {
	r := &Resolver{
		links:  links,
		grants: grants,
		clicks: clicks,
		now:    time.Now,
		logger: logger.Named("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve 解析短码。链接不存在或已停用返回 NotFound 决定；
// 只有存储故障等基础设施错误才返回 error。
func (r *Resolver) Resolve(ctx context.Context, slug string, req RequestContext) (Decision, error) {
	now := r.now()

	link, err := r.links.FindActiveBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.decide(Decision{Kind: NotFound}), nil
		}
		return Decision{}, err
	}

	if IsBot(req.UserAgent) {
		return r.decide(Decision{
			Kind:     BotPreview,
			Location: MetadataPath + "?url=" + url.QueryEscape(link.OriginalURL) + "&slug=" + url.QueryEscape(slug),
		}), nil
	}

	if link.IsExpired(now) {
		return r.decide(Decision{Kind: Expired, Location: ExpiredPath}), nil
	}

	if link.Protected && !r.granted(req.GrantToken, slug, now) {
		return r.decide(Decision{Kind: PasswordRequired, Location: PasswordPath + url.PathEscape(slug)}), nil
	}

	r.enqueue(slug, req, now)
	return r.decide(Decision{Kind: Redirect, Location: link.OriginalURL}), nil
}

func (r *Resolver) granted(token, slug string, now time.Time) bool {
	if token == "" || r.grants == nil {
		return false
	}
	return r.grants.Verify(token, slug, now) == nil
}

func (r *Resolver) enqueue(slug string, req RequestContext, now time.Time) {
	if r.clicks == nil {
		return
	}
	r.clicks.Enqueue(tracker.RawClick{
		Slug:      slug,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Referrer:  req.Referrer,
		Country:   req.Country,
		City:      req.City,
		Timestamp: now,
	})
}

func (r *Resolver) decide(d Decision) Decision {
	metrics.RedirectDecisions.WithLabelValues(d.Kind.String()).Inc()
	return d
}
