package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/3Eeeecho/go-sharelink/internal/config"
)

func TestAttachmentDisposition(t *testing.T) {
	assert.Equal(t, "attachment", attachmentDisposition(""))
	assert.Equal(t, "attachment; filename=report.pdf", attachmentDisposition("report.pdf"))
	assert.Equal(t, `attachment; filename="my report.pdf"`, attachmentDisposition("my report.pdf"))
}

func TestBucketName(t *testing.T) {
	cfg := &config.Config{
		MinIO:     config.MinIOConfig{BucketName: "minio-bucket"},
		AliyunOSS: config.AliyunOSSConfig{BucketName: "oss-bucket"},
		S3:        config.S3Config{BucketName: "s3-bucket"},
	}

	cfg.Storage.Type = "minio"
	assert.Equal(t, "minio-bucket", BucketName(cfg))
	cfg.Storage.Type = "aliyun_oss"
	assert.Equal(t, "oss-bucket", BucketName(cfg))
	cfg.Storage.Type = "s3"
	assert.Equal(t, "s3-bucket", BucketName(cfg))

	cfg.Storage.BucketName = "override"
	assert.Equal(t, "override", BucketName(cfg))
}
