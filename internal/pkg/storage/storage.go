package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/3Eeeecho/go-sharelink/internal/config"
)

// StorageService 定义了分享服务需要的对象存储操作
type StorageService interface {
	// 上传文件到指定存储桶
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) (PutObjectResult, error)
	// 删除对象，对象不存在不视为错误
	RemoveObject(ctx context.Context, bucketName, objectName string) error
	// 检查存储桶是否存在
	IsBucketExist(ctx context.Context, bucketName string) (bool, error)
	// 创建存储桶
	MakeBucket(ctx context.Context, bucketName string) error
	// 生成限时的 GET 预签名 URL，filename 用于 Content-Disposition
	PreSignGetObjectURL(ctx context.Context, bucketName, objectName, filename string, expiry time.Duration) (string, error)
}

type PutObjectResult struct {
	Bucket string
	Key    string
	Size   int64
	ETag   string // 对象哈希值
}

// NewStorageService 根据 storage.type 选择具体实现
func NewStorageService(ctx context.Context, cfg *config.Config) (StorageService, error) {
	switch cfg.Storage.Type {
	case "minio":
		return NewMinIOStorageService(&cfg.MinIO)
	case "aliyun_oss":
		return NewAliyunOSSStorageService(&cfg.AliyunOSS)
	case "s3":
		return NewS3StorageService(ctx, &cfg.S3)
	default:
		return nil, fmt.Errorf("invalid storage type: %q", cfg.Storage.Type)
	}
}

// BucketName 返回当前存储类型使用的桶名，storage.bucket_name 优先
func BucketName(cfg *config.Config) string {
	if cfg.Storage.BucketName != "" {
		return cfg.Storage.BucketName
	}
	switch cfg.Storage.Type {
	case "aliyun_oss":
		return cfg.AliyunOSS.BucketName
	case "s3":
		return cfg.S3.BucketName
	default:
		return cfg.MinIO.BucketName
	}
}

// attachmentDisposition 生成带原始文件名的下载头
func attachmentDisposition(filename string) string {
	if filename == "" {
		return "attachment"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
