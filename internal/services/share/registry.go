package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
)

const (
	defaultTokenRetries = 5
	maxPasswordLength   = 72 // bcrypt 上限
	defaultPageSize     = 20
	maxPageSize         = 100
	defaultLogLimit     = 100

	// MaxLinkLifetime 链接有效期上限
	MaxLinkLifetime = 10 * 365 * 24 * time.Hour
)

// ExpiresInMinutes 把请求里的分钟数转换为有效期，先比较上限再相乘，避免 int64 溢出
func ExpiresInMinutes(minutes int64) (time.Duration, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: 过期时间必须为正数", xerr.ErrInvalidParams)
	}
	if minutes > int64(MaxLinkLifetime/time.Minute) {
		return 0, fmt.Errorf("%w: 有效期不能超过 %d 分钟", xerr.ErrInvalidParams, int64(MaxLinkLifetime/time.Minute))
	}
	return time.Duration(minutes) * time.Minute, nil
}

// LinkPolicy 创建链接时的可选限制
type LinkPolicy struct {
	ExpiresIn    *time.Duration
	MaxDownloads *uint32
	Password     *string
}

// Validate 上传前也会调用，避免对象已写入后才发现参数非法
func (p LinkPolicy) Validate() error {
	if p.MaxDownloads != nil && *p.MaxDownloads == 0 {
		return fmt.Errorf("%w: max_downloads 必须为正数", xerr.ErrInvalidParams)
	}
	if p.ExpiresIn != nil && *p.ExpiresIn <= 0 {
		return fmt.Errorf("%w: 过期时间必须为正数", xerr.ErrInvalidParams)
	}
	if p.ExpiresIn != nil && *p.ExpiresIn > MaxLinkLifetime {
		return fmt.Errorf("%w: 有效期过长", xerr.ErrInvalidParams)
	}
	if p.Password != nil && len(*p.Password) > maxPasswordLength {
		return fmt.Errorf("%w: 密码过长", xerr.ErrInvalidParams)
	}
	return nil
}

// LinkRegistry 分享链接的创建、查找和所有者操作
type LinkRegistry interface {
	// Create 为 fileID 创建新的可用链接，调用者必须是文件所有者
	Create(ctx context.Context, ownerID, fileID uint64, policy LinkPolicy) (*models.ShareLink, error)
	// LookupByToken 唯一面向匿名请求的读取路径，只做精确匹配
	LookupByToken(ctx context.Context, token string) (*models.ShareLink, error)
	Deactivate(ctx context.Context, ownerID, linkID uint64) error
	RegenerateToken(ctx context.Context, ownerID, linkID uint64) (string, error)
	ListByOwner(ctx context.Context, ownerID uint64, page, pageSize int) ([]models.ShareLink, int64, error)
	ListDownloads(ctx context.Context, ownerID, linkID uint64, limit int) ([]models.DownloadLog, error)
}

type linkRegistry struct {
	links      repositories.ShareLinkRepository
	files      repositories.FileRepository
	logs       repositories.DownloadLogRepository
	newToken   TokenGenerator
	maxRetries int
	now        func() time.Time
}

type RegistryOption func(*linkRegistry)

func WithTokenGenerator(g TokenGenerator) RegistryOption {
	return func(r *linkRegistry) { r.newToken = g }
}

func WithTokenRetries(n int) RegistryOption {
	return func(r *linkRegistry) {
		if n > 0 {
			r.maxRetries = n
		}
	}
}

func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *linkRegistry) { r.now = now }
}

func NewLinkRegistry(
	links repositories.ShareLinkRepository,
	files repositories.FileRepository,
	logs repositories.DownloadLogRepository,
	opts ...RegistryOption,
) LinkRegistry {
	r := &linkRegistry{
		links:      links,
		files:      files,
		logs:       logs,
		newToken:   GenerateToken,
		maxRetries: defaultTokenRetries,
		now:        utcNow,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Create 处理创建分享链接的业务逻辑
func (r *linkRegistry) Create(ctx context.Context, ownerID, fileID uint64, policy LinkPolicy) (*models.ShareLink, error) {
	// 1. 校验参数
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	// 2. 验证文件存在且属于当前用户
	file, err := r.files.FindByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.UserID != ownerID {
		return nil, xerr.ErrPermissionDenied
	}

	now := r.now()
	link := &models.ShareLink{
		FileID:       file.ID,
		MaxDownloads: policy.MaxDownloads,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if policy.ExpiresIn != nil {
		expiresAt := now.Add(*policy.ExpiresIn)
		link.ExpiresAt = &expiresAt
	}

	// 3. 如果设置了密码，对密码进行哈希处理
	if policy.Password != nil && *policy.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*policy.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("Create: 密码哈希失败", zap.Error(err))
			return nil, fmt.Errorf("密码处理失败: %w", err)
		}
		h := string(hashed)
		link.PasswordHash = &h
	}

	// 4. 生成 token 并写库，唯一约束冲突时重新生成
	err = r.withUniqueToken(func(token string) error {
		link.ID = 0
		link.Token = token
		return r.links.Create(ctx, link)
	})
	if err != nil {
		return nil, err
	}

	link.File = file
	logger.Info("Create: 分享链接创建成功",
		zap.Uint64("linkID", link.ID),
		zap.Uint64("fileID", fileID),
		zap.Uint64("ownerID", ownerID))
	return link, nil
}

// withUniqueToken 最多尝试 maxRetries 个新 token
func (r *linkRegistry) withUniqueToken(write func(token string) error) error {
	for i := 0; i < r.maxRetries; i++ {
		token, err := r.newToken()
		if err != nil {
			logger.Error("token generation failed", zap.Error(err))
			return err
		}
		err = write(token)
		if err == nil {
			return nil
		}
		if !repositories.IsDuplicateKey(err) {
			return err
		}
		logger.Warn("share token collision, regenerating", zap.Int("attempt", i+1))
	}
	return xerr.ErrTokenUnavailable
}

func (r *linkRegistry) LookupByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	link, err := r.links.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, xerr.ErrShareNotFound
	}
	return link, nil
}

// ownedLink 读取链接并校验所有权
func (r *linkRegistry) ownedLink(ctx context.Context, ownerID, linkID uint64) (*models.ShareLink, error) {
	link, err := r.links.FindByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, xerr.ErrShareNotFound
	}
	if link.File == nil || link.File.UserID != ownerID {
		return nil, xerr.ErrPermissionDenied
	}
	return link, nil
}

// Deactivate 重复停用不报错
func (r *linkRegistry) Deactivate(ctx context.Context, ownerID, linkID uint64) error {
	link, err := r.ownedLink(ctx, ownerID, linkID)
	if err != nil {
		return err
	}
	if !link.IsActive {
		return nil
	}
	if err := r.links.Deactivate(ctx, link.ID); err != nil {
		return err
	}
	logger.Info("Deactivate: 分享链接已停用", zap.Uint64("linkID", linkID), zap.Uint64("ownerID", ownerID))
	return nil
}

// RegenerateToken 旧 token 立即失效，下载计数保留
func (r *linkRegistry) RegenerateToken(ctx context.Context, ownerID, linkID uint64) (string, error) {
	link, err := r.ownedLink(ctx, ownerID, linkID)
	if err != nil {
		return "", err
	}

	var newToken string
	err = r.withUniqueToken(func(token string) error {
		newToken = token
		return r.links.UpdateToken(ctx, link.ID, token)
	})
	if err != nil {
		return "", err
	}
	logger.Info("RegenerateToken: 分享 token 已重新生成", zap.Uint64("linkID", linkID), zap.Uint64("ownerID", ownerID))
	return newToken, nil
}

func (r *linkRegistry) ListByOwner(ctx context.Context, ownerID uint64, page, pageSize int) ([]models.ShareLink, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}
	return r.links.FindAllByUserID(ctx, ownerID, page, pageSize)
}

func (r *linkRegistry) ListDownloads(ctx context.Context, ownerID, linkID uint64, limit int) ([]models.DownloadLog, error) {
	if _, err := r.ownedLink(ctx, ownerID, linkID); err != nil {
		return nil, err
	}
	if limit < 1 || limit > maxPageSize {
		limit = defaultLogLimit
	}
	logs, err := r.logs.FindByShareLinkID(ctx, linkID, limit)
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// checkPassword 链接未设置密码时直接通过
func checkPassword(link *models.ShareLink, provided *string) error {
	if !link.HasPassword() {
		return nil
	}
	if provided == nil || *provided == "" {
		return xerr.ErrSharePasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*link.PasswordHash), []byte(*provided)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return xerr.ErrSharePasswordIncorrect
		}
		return fmt.Errorf("校验分享密码失败: %w", err)
	}
	return nil
}
