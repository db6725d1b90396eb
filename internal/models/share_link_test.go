package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

func u32(v uint32) *uint32 { return &v }

func TestShareLinkUnusable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name string
		link ShareLink
		want error
	}{
		{"unlimited", ShareLink{IsActive: true}, nil},
		{"inactive", ShareLink{IsActive: false}, xerr.ErrShareNotFound},
		{"expired", ShareLink{IsActive: true, ExpiresAt: &past}, xerr.ErrLinkExpired},
		{"expires exactly now", ShareLink{IsActive: true, ExpiresAt: &now}, xerr.ErrLinkExpired},
		{"not yet expired", ShareLink{IsActive: true, ExpiresAt: &future}, nil},
		{"exhausted", ShareLink{IsActive: true, MaxDownloads: u32(3), CurrentDownloads: 3}, xerr.ErrLinkExhausted},
		{"one left", ShareLink{IsActive: true, MaxDownloads: u32(3), CurrentDownloads: 2}, nil},
		{"expired and exhausted", ShareLink{IsActive: true, ExpiresAt: &past, MaxDownloads: u32(1), CurrentDownloads: 1}, xerr.ErrLinkExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.link.Unusable(now))
		})
	}
}

func TestShareLinkExpiryIsMonotonic(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	link := ShareLink{IsActive: true, ExpiresAt: &expires}

	// 一旦过期，之后任意时刻都不可用
	for _, d := range []time.Duration{0, time.Nanosecond, time.Hour, 24 * 365 * time.Hour} {
		assert.ErrorIs(t, link.Unusable(expires.Add(d)), xerr.ErrLinkExpired)
	}
	assert.NoError(t, link.Unusable(expires.Add(-time.Nanosecond)))
}

func TestRemainingDownloads(t *testing.T) {
	assert.Nil(t, (&ShareLink{}).RemainingDownloads())
	assert.Equal(t, uint32(2), *(&ShareLink{MaxDownloads: u32(5), CurrentDownloads: 3}).RemainingDownloads())
	assert.Equal(t, uint32(0), *(&ShareLink{MaxDownloads: u32(5), CurrentDownloads: 5}).RemainingDownloads())
}
