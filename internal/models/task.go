package models

// DeleteObjectTask 文件记录删除后发布到 RabbitMQ，由 worker 异步清理对象存储
type DeleteObjectTask struct {
	FileID uint64 `json:"file_id"`
	UserID uint64 `json:"user_id"`
	Bucket string `json:"bucket"`
	OssKey string `json:"oss_key"`
}
