package grant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", 24*time.Hour)
	require.NoError(t, err)
	return m
}

func TestNewManager_RequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}

func TestIssueAndVerify(t *testing.T) {
	m := newManager(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	token, err := m.Issue("secret-link", now)
	require.NoError(t, err)

	assert.NoError(t, m.Verify(token, "secret-link", now.Add(time.Hour)))
	assert.NoError(t, m.Verify(token, "secret-link", now.Add(23*time.Hour)))
}

func TestVerify_ScopedToSlug(t *testing.T) {
	m := newManager(t)
	now := time.Now()

	tokenA, err := m.Issue("slug-a", now)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Verify(tokenA, "slug-b", now), ErrInvalidGrant, "A 的凭证不能用于 B")
}

func TestVerify_Expired(t *testing.T) {
	m := newManager(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	token, err := m.Issue("s", now)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Verify(token, "s", now.Add(25*time.Hour)), ErrInvalidGrant)
}

func TestVerify_RejectsForgeries(t *testing.T) {
	m := newManager(t)
	other, err := NewManager("another-secret", time.Hour)
	require.NoError(t, err)
	now := time.Now()

	forged, err := other.Issue("s", now)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Verify(forged, "s", now), ErrInvalidGrant)
	// 旧版的布尔哨兵值不再被接受
	assert.ErrorIs(t, m.Verify("granted", "s", now), ErrInvalidGrant)
	assert.ErrorIs(t, m.Verify("", "s", now), ErrInvalidGrant)
}

func TestCookieName(t *testing.T) {
	assert.Equal(t, "link_access_promo", CookieName("promo"))
}
