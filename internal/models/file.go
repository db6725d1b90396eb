package models

import (
	"time"
)

const (
	StatusNormal = 1 // 正常
)

// File 对应 files 表，一个文件只属于上传它的用户
type File struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID         string    `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	UserID       uint64    `gorm:"not null;index" json:"user_id"`
	FileName     string    `gorm:"size:255;not null" json:"filename"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	Size         uint64    `gorm:"not null;default:0" json:"size"`
	MimeType     *string   `gorm:"size:128" json:"mime_type"`
	OssBucket    string    `gorm:"size:64;not null" json:"oss_bucket"`
	OssKey       string    `gorm:"size:255;not null" json:"oss_key"` // 对象存储中的路径
	Status       uint8     `gorm:"not null;default:1" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定 GORM 使用的表名
func (File) TableName() string {
	return "files"
}
