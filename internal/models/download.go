package models

import "time"

// DownloadAttempt 下载尝试流水，只追加不修改，限流完全基于该表计算
// token 按值记录，不与 share_links 建立外键
type DownloadAttempt struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	IPAddress   string    `gorm:"size:64;not null;index:idx_attempt_ip_time,priority:1" json:"ip_address"`
	Token       string    `gorm:"size:128;not null;index:idx_attempt_token_time,priority:1" json:"token"`
	AttemptedAt time.Time `gorm:"not null;index:idx_attempt_ip_time,priority:2;index:idx_attempt_token_time,priority:2" json:"attempted_at"`
	Success     bool      `gorm:"not null" json:"success"`
}

func (DownloadAttempt) TableName() string {
	return "download_attempts"
}

// DownloadLog 成功下载记录，只在消费事务中写入
type DownloadLog struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ShareLinkID  uint64    `gorm:"not null;index" json:"share_link_id"`
	IPAddress    string    `gorm:"size:64;not null" json:"ip_address"`
	UserAgent    string    `gorm:"size:512;not null;default:''" json:"user_agent"`
	DownloadedAt time.Time `gorm:"not null" json:"downloaded_at"`
}

func (DownloadLog) TableName() string {
	return "download_logs"
}
