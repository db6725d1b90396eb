package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
)

type ShareLinkRepository interface {
	// WithTx 返回绑定到事务的仓库
	WithTx(tx *gorm.DB) ShareLinkRepository
	Create(ctx context.Context, link *models.ShareLink) error
	// FindByToken 按 token 精确查找，未找到返回 nil, nil
	FindByToken(ctx context.Context, token string) (*models.ShareLink, error)
	FindByID(ctx context.Context, id uint64) (*models.ShareLink, error)
	FindAllByUserID(ctx context.Context, userID uint64, page, pageSize int) ([]models.ShareLink, int64, error)
	// ConsumeDownload 条件自增下载计数，返回是否成功占用一次
	ConsumeDownload(ctx context.Context, id uint64, now time.Time) (bool, error)
	Deactivate(ctx context.Context, id uint64) error
	UpdateToken(ctx context.Context, id uint64, token string) error
	DeleteByFileID(ctx context.Context, fileID uint64) (int64, error)
}

type shareLinkRepository struct {
	db *gorm.DB
}

// NewShareLinkRepository 创建新的shareLinkRepository实例
func NewShareLinkRepository(db *gorm.DB) ShareLinkRepository {
	return &shareLinkRepository{db: db}
}

func (r *shareLinkRepository) WithTx(tx *gorm.DB) ShareLinkRepository {
	return &shareLinkRepository{db: tx}
}

func (r *shareLinkRepository) Create(ctx context.Context, link *models.ShareLink) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return fmt.Errorf("创建分享链接失败: %w", err)
	}
	return nil
}

func (r *shareLinkRepository) FindByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.WithContext(ctx).Preload("File").Where("token = ?", token).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享链接失败: %w", err)
	}
	return &link, nil
}

func (r *shareLinkRepository) FindByID(ctx context.Context, id uint64) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.WithContext(ctx).Preload("File").First(&link, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询分享链接失败: %w", err)
	}
	return &link, nil
}

// 查找用户名下所有文件的分享链接，按创建时间倒序
func (r *shareLinkRepository) FindAllByUserID(ctx context.Context, userID uint64, page, pageSize int) ([]models.ShareLink, int64, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.ShareLink{}).
			Joins("JOIN files ON files.id = share_links.file_id").
			Where("files.user_id = ?", userID)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计分享链接失败: %w", err)
	}

	var links []models.ShareLink
	offset := (page - 1) * pageSize
	err := base().Preload("File").
		Order("share_links.created_at DESC, share_links.id DESC").
		Offset(offset).Limit(pageSize).
		Find(&links).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询分享链接列表失败: %w", err)
	}
	return links, total, nil
}

// ConsumeDownload 把可用性判断和计数自增放进同一条 UPDATE，
// 并发请求由数据库行锁串行化，计数不会超过 max_downloads
func (r *shareLinkRepository) ConsumeDownload(ctx context.Context, id uint64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ? AND is_active = ?", id, true).
		Where("(expires_at IS NULL OR expires_at > ?)", now).
		Where("(max_downloads IS NULL OR current_downloads < max_downloads)").
		UpdateColumn("current_downloads", gorm.Expr("current_downloads + ?", 1))
	if res.Error != nil {
		return false, fmt.Errorf("更新下载次数失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *shareLinkRepository) Deactivate(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("停用分享链接失败: %w", err)
	}
	return nil
}

func (r *shareLinkRepository) UpdateToken(ctx context.Context, id uint64, token string) error {
	err := r.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", id).
		Update("token", token).Error
	if err != nil {
		return fmt.Errorf("更新分享 token 失败: %w", err)
	}
	return nil
}

func (r *shareLinkRepository) DeleteByFileID(ctx context.Context, fileID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("file_id = ?", fileID).Delete(&models.ShareLink{})
	if res.Error != nil {
		return 0, fmt.Errorf("删除文件的分享链接失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}
