package metadata

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ctx = context.Background()

const page = `<!doctype html>
<html><head>
<meta charset="utf-8">
<title> Spring Sale </title>
<meta name="description" content="Everything 50% off">
<meta property="og:image" content="https://cdn.example/sale.png" />
</head><body><title>ignored</title></body></html>`

func TestExtract(t *testing.T) {
	p := Extract(strings.NewReader(page))
	assert.Equal(t, "Spring Sale", p.Title)
	assert.Equal(t, "Everything 50% off", p.Description)
	assert.Equal(t, "https://cdn.example/sale.png", p.Image)
}

func TestExtract_OpenGraphFallbacks(t *testing.T) {
	doc := `<html><head>
<meta content="OG title" property="og:title">
<meta property="og:description" content="OG description">
<meta name="twitter:image" content="https://cdn.example/tw.png">
</head></html>`
	p := Extract(strings.NewReader(doc))
	assert.Equal(t, "OG title", p.Title)
	assert.Equal(t, "OG description", p.Description)
	assert.Equal(t, "https://cdn.example/tw.png", p.Image)
}

func TestExtract_EmptyDocument(t *testing.T) {
	assert.Equal(t, Preview{}, Extract(strings.NewReader("")))
	assert.Equal(t, Preview{}, Extract(strings.NewReader("not html at all")))
}

func TestValidateURL(t *testing.T) {
	for _, raw := range []string{"https://example.com", "http://example.com/a?b=c"} {
		_, err := ValidateURL(raw)
		assert.NoError(t, err, raw)
	}
	for _, raw := range []string{"", "example.com", "ftp://example.com/file", "javascript:alert(1)", "https://"} {
		_, err := ValidateURL(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

// newService 测试服务器都在 127.0.0.1 上，需要放开内网限制
func newService(t *testing.T, cache *redis.Client, opts Options) *Service {
	t.Helper()
	opts.AllowPrivateNetworks = true
	return New(cache, opts, zap.NewNop().Sugar())
}

func TestLookup_FetchesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "Shlink-Metadata-Bot/1.0", r.Header.Get("User-Agent"))
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	svc := newService(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}), Options{})

	p, err := svc.Lookup(ctx, srv.URL+"/sale")
	require.NoError(t, err)
	assert.Equal(t, "Spring Sale", p.Title)
	assert.Equal(t, srv.URL+"/sale", p.URL)

	p, err = svc.Lookup(ctx, srv.URL+"/sale")
	require.NoError(t, err)
	assert.Equal(t, "Spring Sale", p.Title)
	assert.Equal(t, int32(1), hits.Load(), "第二次应命中缓存")

	ttl := mr.TTL("meta:" + srv.URL + "/sale")
	assert.Equal(t, 24*time.Hour, ttl)
}

func TestLookup_WithoutCacheAlwaysFetches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	svc := newService(t, nil, Options{})
	for i := 0; i < 3; i++ {
		_, err := svc.Lookup(ctx, srv.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestLookup_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	mr := miniredis.RunT(t)
	svc := newService(t, redis.NewClient(&redis.Options{Addr: mr.Addr()}), Options{})

	_, err := svc.Lookup(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Empty(t, mr.Keys(), "失败结果不缓存")
}

func TestLookup_UnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	_, err := newService(t, nil, Options{Timeout: time.Second}).Lookup(ctx, target)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLookup_InvalidURL(t *testing.T) {
	_, err := newService(t, nil, Options{}).Lookup(ctx, "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestLookup_BodyIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><head><!--")
		fmt.Fprint(w, strings.Repeat("x", 4096))
		fmt.Fprint(w, "--><title>Too late</title></head></html>")
	}))
	defer srv.Close()

	p, err := newService(t, nil, Options{MaxBodyBytes: 1024}).Lookup(ctx, srv.URL)
	require.NoError(t, err)
	assert.Empty(t, p.Title)
}

func TestLookup_RefusesInternalAddresses(t *testing.T) {
	var hits atomic.Int32
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<html><head><title>INTERNAL-ADMIN-SECRET</title></head></html>`)
	}))
	defer internal.Close()

	svc := New(nil, Options{Timeout: time.Second}, zap.NewNop().Sugar())

	p, err := svc.Lookup(ctx, internal.URL+"/admin")
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Nil(t, p)

	_, port, _ := strings.Cut(strings.TrimPrefix(internal.URL, "http://"), ":")
	_, err = svc.Lookup(ctx, "http://localhost:"+port+"/admin")
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, hits.Load(), "内网服务不应收到请求")
}

func TestLookup_RefusesRedirectToInternalAddress(t *testing.T) {
	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>INTERNAL</title></head></html>`)
	}))
	defer internal.Close()

	// 模拟公网地址：只有第一跳放行，之后的重定向仍需经过地址检查
	var dials atomic.Int32
	svc := New(nil, Options{Timeout: time.Second}, zap.NewNop().Sugar())
	transport := svc.client.Transport.(*http.Transport)
	dialer := &net.Dialer{Timeout: time.Second}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if dials.Add(1) > 1 {
			if err := dialControl(network, addr, nil); err != nil {
				return nil, err
			}
		}
		return dialer.DialContext(ctx, network, addr)
	}

	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/latest/meta-data", http.StatusFound)
	}))
	defer redirector.Close()

	_, err := svc.Lookup(ctx, redirector.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
}

func TestIsPublicIP(t *testing.T) {
	blocked := []string{"127.0.0.1", "::1", "10.1.2.3", "172.16.0.1", "192.168.1.1",
		"169.254.169.254", "0.0.0.0", "::", "fe80::1", "fd00::1", "100.64.0.1", "224.0.0.1"}
	for _, raw := range blocked {
		assert.False(t, isPublicIP(net.ParseIP(raw)), raw)
	}
	for _, raw := range []string{"8.8.8.8", "93.184.216.34", "2606:4700:4700::1111"} {
		assert.True(t, isPublicIP(net.ParseIP(raw)), raw)
	}
	assert.False(t, isPublicIP(nil))
}
