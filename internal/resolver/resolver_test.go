package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shortlink-service/internal/grant"
	"shortlink-service/internal/model"
	"shortlink-service/internal/store"
	"shortlink-service/internal/storetest"
	"shortlink-service/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	ctx = context.Background()
	now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

type recordingQueue struct {
	mu     sync.Mutex
	clicks []tracker.RawClick
}

func (q *recordingQueue) Enqueue(raw tracker.RawClick) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.clicks = append(q.clicks, raw)
	return true
}

func (q *recordingQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.clicks)
}

type fixture struct {
	store    *store.Store
	grants   *grant.Manager
	queue    *recordingQueue
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.New(t)
	grants, err := grant.NewManager("resolver-secret", 24*time.Hour)
	require.NoError(t, err)
	q := &recordingQueue{}
	return &fixture{
		store:    s,
		grants:   grants,
		queue:    q,
		resolver: New(s, grants, q, zap.NewNop().Sugar(), WithClock(func() time.Time { return now })),
	}
}

func expiresAt(d time.Duration) func(*model.Link) {
	return func(l *model.Link) {
		ts := now.Add(d)
		l.ExpiresAt = &ts
	}
}

func withPassword(t *testing.T, password string) func(*model.Link) {
	return func(l *model.Link) { require.NoError(t, l.SetPassword(password)) }
}

func TestResolve_ActiveLinkRedirectsAndTracks(t *testing.T) {
	f := newFixture(t)
	link := storetest.SeedLink(t, f.store, "abc123", "https://example.com")

	d, err := f.resolver.Resolve(ctx, "abc123", RequestContext{UserAgent: browserUA, IP: "192.0.2.1"})
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: Redirect, Location: "https://example.com"}, d)

	require.Equal(t, 1, f.queue.len())
	raw := f.queue.clicks[0]
	assert.Equal(t, "abc123", raw.Slug)
	assert.Equal(t, "192.0.2.1", raw.IP)
	assert.True(t, now.Equal(raw.Timestamp))

	// 后台追踪后计数从 0 变为 1
	tracker.New(f.store, "salt", zap.NewNop().Sugar()).Track(ctx, raw)
	count, err := f.store.ClickCount(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestResolve_NotFoundHidesInactive(t *testing.T) {
	f := newFixture(t)
	storetest.SeedLink(t, f.store, "off", "https://example.com", func(l *model.Link) { l.IsActive = false })

	for _, slug := range []string{"off", "never-existed"} {
		d, err := f.resolver.Resolve(ctx, slug, RequestContext{UserAgent: browserUA})
		require.NoError(t, err)
		assert.Equal(t, Decision{Kind: NotFound}, d, slug)
	}
	assert.Zero(t, f.queue.len())
}

func TestResolve_Expired(t *testing.T) {
	f := newFixture(t)
	storetest.SeedLink(t, f.store, "promo", "https://example.com/sale", expiresAt(-time.Minute))
	storetest.SeedLink(t, f.store, "later", "https://example.com/later", expiresAt(time.Minute))

	d, err := f.resolver.Resolve(ctx, "promo", RequestContext{UserAgent: browserUA})
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: Expired, Location: "/expired"}, d)

	d, err = f.resolver.Resolve(ctx, "later", RequestContext{UserAgent: browserUA})
	require.NoError(t, err)
	assert.Equal(t, Redirect, d.Kind)
	assert.Equal(t, 1, f.queue.len(), "过期链接不记录点击")
}

func TestResolve_PasswordGate(t *testing.T) {
	f := newFixture(t)
	storetest.SeedLink(t, f.store, "vault-a", "https://a.example", withPassword(t, "pw"))
	storetest.SeedLink(t, f.store, "vault-b", "https://b.example", withPassword(t, "pw"))

	d, err := f.resolver.Resolve(ctx, "vault-a", RequestContext{UserAgent: browserUA})
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: PasswordRequired, Location: "/password/vault-a"}, d)

	tokenA, err := f.grants.Issue("vault-a", now)
	require.NoError(t, err)

	d, err = f.resolver.Resolve(ctx, "vault-a", RequestContext{UserAgent: browserUA, GrantToken: tokenA})
	require.NoError(t, err)
	assert.Equal(t, Decision{Kind: Redirect, Location: "https://a.example"}, d)

	// A 的凭证不能打开 B
	d, err = f.resolver.Resolve(ctx, "vault-b", RequestContext{UserAgent: browserUA, GrantToken: tokenA})
	require.NoError(t, err)
	assert.Equal(t, PasswordRequired, d.Kind)

	d, err = f.resolver.Resolve(ctx, "vault-b", RequestContext{UserAgent: browserUA, GrantToken: "granted"})
	require.NoError(t, err)
	assert.Equal(t, PasswordRequired, d.Kind, "伪造的凭证无效")
}

func TestResolve_BotPreviewComesFirst(t *testing.T) {
	f := newFixture(t)
	storetest.SeedLink(t, f.store, "share", "https://example.com/a?b=c&d=e", expiresAt(-time.Hour))

	d, err := f.resolver.Resolve(ctx, "share", RequestContext{UserAgent: "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)"})
	require.NoError(t, err)
	assert.Equal(t, BotPreview, d.Kind)
	assert.Equal(t, "/metadata?url=https%3A%2F%2Fexample.com%2Fa%3Fb%3Dc%26d%3De&slug=share", d.Location)
	assert.Zero(t, f.queue.len(), "爬虫访问不记录点击")
}

type downSource struct{}

func (downSource) FindActiveBySlug(context.Context, string) (*store.Snapshot, error) {
	return nil, errors.Join(store.ErrUnavailable, errors.New("connection refused"))
}

func TestResolve_StoreUnavailable(t *testing.T) {
	r := New(downSource{}, nil, nil, zap.NewNop().Sugar())
	_, err := r.Resolve(ctx, "abc123", RequestContext{})
	assert.ErrorIs(t, err, store.ErrUnavailable)
}

func TestIsBot(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"", false},
		{"???", false},
		{browserUA, false},
		{"Twitterbot/1.0", true},
		{"Mozilla/5.0 (compatible; Discordbot/2.0; +https://discordapp.com)", true},
		{"Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", true},
		{"WhatsApp/2.23.20.0", true},
		{"LinkedInBot/1.0 (compatible; Mozilla/5.0)", true},
		{"TelegramBot (like TwitterBot)", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBot(tt.ua), tt.ua)
	}
}
