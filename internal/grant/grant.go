// Package grant 签发和校验短链接密码通过后的访问凭证。
//
// 凭证是 HS256 签名的 JWT，sub 为短码，exp 为过期时间，保存在
// link_access_<slug> Cookie 中。校验只做 HMAC，不在跳转路径上做 bcrypt。
package grant

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookiePrefix 访问凭证 Cookie 名前缀
const CookiePrefix = "link_access_"

const issuer = "shortlink-service"

var (
	ErrInvalidGrant = errors.New("invalid access grant")
	ErrEmptySecret  = errors.New("grant secret must not be empty")
)

// Manager 负责签发和校验访问凭证
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager 创建凭证管理器
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// CookieName 某个短码对应的 Cookie 名
func CookieName(slug string) string {
	return CookiePrefix + slug
}

// TTL 凭证有效期
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue 为 slug 签发凭证
func (m *Manager) Issue(slug string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   slug,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("签发访问凭证失败: %w", err)
	}
	return token, nil
}

// Verify 校验凭证是否签发给 slug 且在 now 时仍有效
func (m *Manager) Verify(token, slug string, now time.Time) error {
	if token == "" {
		return ErrInvalidGrant
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(slug),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return errors.Join(ErrInvalidGrant, err)
	}
	return nil
}
