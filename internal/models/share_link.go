package models

import (
	"time"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

// ShareLink 对应 share_links 表
type ShareLink struct {
	ID               uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FileID           uint64     `gorm:"not null;index" json:"file_id"`
	Token            string     `gorm:"size:128;uniqueIndex;not null" json:"token"`
	PasswordHash     *string    `gorm:"size:255" json:"-"` // - 表示不输出到 JSON
	ExpiresAt        *time.Time `json:"expires_at"`
	MaxDownloads     *uint32    `json:"max_downloads"`
	CurrentDownloads uint32     `gorm:"not null;default:0" json:"current_downloads"`
	IsActive         bool       `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	File *File `gorm:"foreignKey:FileID" json:"file,omitempty"`
}

// TableName 指定 GORM 使用的表名
func (ShareLink) TableName() string {
	return "share_links"
}

// Unusable 判断链接在 now 时刻能否被下载，可用时返回 nil
// 过期优先于次数耗尽判断
func (l *ShareLink) Unusable(now time.Time) error {
	switch {
	case !l.IsActive:
		return xerr.ErrShareNotFound
	case l.IsExpired(now):
		return xerr.ErrLinkExpired
	case l.IsExhausted():
		return xerr.ErrLinkExhausted
	}
	return nil
}

func (l *ShareLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}

func (l *ShareLink) IsExhausted() bool {
	return l.MaxDownloads != nil && l.CurrentDownloads >= *l.MaxDownloads
}

// RemainingDownloads 返回剩余可下载次数，不限次数时返回 nil
func (l *ShareLink) RemainingDownloads() *uint32 {
	if l.MaxDownloads == nil {
		return nil
	}
	var left uint32
	if *l.MaxDownloads > l.CurrentDownloads {
		left = *l.MaxDownloads - l.CurrentDownloads
	}
	return &left
}

func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}
