package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrCacheMiss = errors.New("缓存未命中,key不存在")

// NotFoundMarker 写入哈希的占位字段，防止不存在的文件反复穿透到数据库
const NotFoundMarker = "__NOT_FOUND__"

// Cache 文件元数据缓存使用的哈希操作
type Cache interface {
	// HGetAll 读取整个哈希，key 不存在时返回空 map
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// HSetWithTTL 在一个事务管道中写入哈希并设置过期时间
	HSetWithTTL(ctx context.Context, key string, fields map[string]any, ttl time.Duration) error
	// 删除一个或多个key
	Del(ctx context.Context, keys ...string) error
}

func FileMetadataKey(fileID uint64) string {
	return fmt.Sprintf("file:metadata:%d", fileID)
}
