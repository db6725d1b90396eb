package repositories

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/cache"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/mapper"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

const (
	fileCacheTTL     = 10 * time.Minute
	notFoundCacheTTL = time.Minute
)

// cachedFileRepository 在数据库实现前加一层 Redis 文件元数据缓存 (cache-aside)
type cachedFileRepository struct {
	next  FileRepository
	cache cache.Cache
}

// NewCachedFileRepository cache 为 nil 时直接返回数据库实现
func NewCachedFileRepository(next FileRepository, c cache.Cache) FileRepository {
	if c == nil {
		return next
	}
	return &cachedFileRepository{next: next, cache: c}
}

// 随机抖动，避免大量 key 同时过期
func jitteredTTL() time.Duration {
	return fileCacheTTL + time.Duration(rand.Intn(300))*time.Second
}

func (r *cachedFileRepository) Create(ctx context.Context, file *models.File) error {
	if err := r.next.Create(ctx, file); err != nil {
		return err
	}
	key := cache.FileMetadataKey(file.ID)
	// 覆盖可能存在的 NOT_FOUND 占位
	if err := r.cache.Del(ctx, key); err != nil {
		logger.Warn("Create: failed to clear file cache", zap.Uint64("fileID", file.ID), zap.Error(err))
	}
	if err := r.cache.HSetWithTTL(ctx, key, mapper.FileToMap(file), jitteredTTL()); err != nil {
		logger.Warn("Create: failed to cache file metadata", zap.Uint64("fileID", file.ID), zap.Error(err))
	}
	return nil
}

func (r *cachedFileRepository) FindByID(ctx context.Context, id uint64) (*models.File, error) {
	key := cache.FileMetadataKey(id)

	resultMap, err := r.cache.HGetAll(ctx, key)
	if err == nil && len(resultMap) > 0 {
		if _, ok := resultMap[cache.NotFoundMarker]; ok {
			return nil, xerr.ErrFileNotFound
		}
		file, mapErr := mapper.MapToFile(resultMap)
		if mapErr == nil {
			return file, nil
		}
		logger.Error("FindByID: Failed to map cached hash to models.File", zap.Uint64("id", id), zap.Error(mapErr))
	} else if err != nil {
		logger.Error("FindByID: Error getting file hash from cache", zap.Uint64("id", id), zap.Error(err))
	}

	// 缓存未命中，回源数据库
	file, err := r.next.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, xerr.ErrFileNotFound) {
			_ = r.cache.HSetWithTTL(ctx, key, map[string]any{cache.NotFoundMarker: "1"}, notFoundCacheTTL)
		}
		return nil, err
	}

	if err := r.cache.HSetWithTTL(ctx, key, mapper.FileToMap(file), jitteredTTL()); err != nil {
		logger.Warn("FindByID: failed to cache file metadata", zap.Uint64("id", id), zap.Error(err))
	}
	return file, nil
}

// Delete 在事务内执行时提交前仍可能被并发读回填，调用方需在提交后再 Evict
func (r *cachedFileRepository) Delete(ctx context.Context, tx *gorm.DB, id uint64) error {
	if err := r.next.Delete(ctx, tx, id); err != nil {
		return err
	}
	r.Evict(ctx, id)
	return nil
}

func (r *cachedFileRepository) Evict(ctx context.Context, id uint64) {
	if err := r.cache.Del(ctx, cache.FileMetadataKey(id)); err != nil {
		logger.Warn("Evict: failed to evict file cache", zap.Uint64("fileID", id), zap.Error(err))
	}
}
