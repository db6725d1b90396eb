package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

type FileRepository interface {
	Create(ctx context.Context, file *models.File) error
	// FindByID 文件不存在时返回 xerr.ErrFileNotFound
	FindByID(ctx context.Context, id uint64) (*models.File, error)
	// Delete 在给定事务中物理删除文件记录
	Delete(ctx context.Context, tx *gorm.DB, id uint64) error
	// Evict 清除文件元数据缓存，删除事务提交后调用
	Evict(ctx context.Context, id uint64)
}

// dbFileRepository 直接访问数据库的实现
type dbFileRepository struct {
	db *gorm.DB
}

func NewDBFileRepository(db *gorm.DB) FileRepository {
	return &dbFileRepository{db: db}
}

func (r *dbFileRepository) Create(ctx context.Context, file *models.File) error {
	if err := r.db.WithContext(ctx).Create(file).Error; err != nil {
		logger.Error("Create: Failed to create file in DB", zap.Error(err), zap.Uint64("userID", file.UserID), zap.String("fileName", file.FileName))
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

func (r *dbFileRepository) FindByID(ctx context.Context, id uint64) (*models.File, error) {
	var file models.File
	err := r.db.WithContext(ctx).First(&file, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xerr.ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &file, nil
}

func (r *dbFileRepository) Delete(ctx context.Context, tx *gorm.DB, id uint64) error {
	if tx == nil {
		tx = r.db
	}
	res := tx.WithContext(ctx).Delete(&models.File{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete file: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return xerr.ErrFileNotFound
	}
	return nil
}

// 无缓存
func (r *dbFileRepository) Evict(context.Context, uint64) {}
