package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
)

// DownloadAttemptRepository 下载尝试流水，只提供追加和计数
type DownloadAttemptRepository interface {
	WithTx(tx *gorm.DB) DownloadAttemptRepository
	Create(ctx context.Context, attempt *models.DownloadAttempt) error
	// CountByIPSince 统计 since 之后该 IP 的全部尝试
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error)
	// CountFailuresByTokenSince 统计 since 之后该 token 的失败尝试
	CountFailuresByTokenSince(ctx context.Context, token string, since time.Time) (int64, error)
}

type downloadAttemptRepository struct {
	db *gorm.DB
}

func NewDownloadAttemptRepository(db *gorm.DB) DownloadAttemptRepository {
	return &downloadAttemptRepository{db: db}
}

func (r *downloadAttemptRepository) WithTx(tx *gorm.DB) DownloadAttemptRepository {
	return &downloadAttemptRepository{db: tx}
}

func (r *downloadAttemptRepository) Create(ctx context.Context, attempt *models.DownloadAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("记录下载尝试失败: %w", err)
	}
	return nil
}

func (r *downloadAttemptRepository) CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.DownloadAttempt{}).
		Where("ip_address = ? AND attempted_at > ?", ip, since).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("统计 IP 下载尝试失败: %w", err)
	}
	return n, nil
}

func (r *downloadAttemptRepository) CountFailuresByTokenSince(ctx context.Context, token string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.DownloadAttempt{}).
		Where("token = ? AND attempted_at > ? AND success = ?", token, since, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("统计 token 失败尝试失败: %w", err)
	}
	return n, nil
}

// DownloadLogRepository 成功下载记录
type DownloadLogRepository interface {
	WithTx(tx *gorm.DB) DownloadLogRepository
	Create(ctx context.Context, log *models.DownloadLog) error
	FindByShareLinkID(ctx context.Context, shareLinkID uint64, limit int) ([]models.DownloadLog, error)
}

type downloadLogRepository struct {
	db *gorm.DB
}

func NewDownloadLogRepository(db *gorm.DB) DownloadLogRepository {
	return &downloadLogRepository{db: db}
}

func (r *downloadLogRepository) WithTx(tx *gorm.DB) DownloadLogRepository {
	return &downloadLogRepository{db: tx}
}

func (r *downloadLogRepository) Create(ctx context.Context, log *models.DownloadLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("写入下载日志失败: %w", err)
	}
	return nil
}

func (r *downloadLogRepository) FindByShareLinkID(ctx context.Context, shareLinkID uint64, limit int) ([]models.DownloadLog, error) {
	var logs []models.DownloadLog
	err := r.db.WithContext(ctx).
		Where("share_link_id = ?", shareLinkID).
		Order("downloaded_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("查询下载日志失败: %w", err)
	}
	return logs, nil
}
