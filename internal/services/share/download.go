package share

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/metrics"
)

const DefaultSignedURLTTL = time.Hour

// SignedURLIssuer 外部对象存储的预签名能力
type SignedURLIssuer interface {
	PreSignGetObjectURL(ctx context.Context, bucketName, objectName, filename string, expiry time.Duration) (string, error)
}

type DownloadResult struct {
	SignedURL string `json:"signedUrl"`
	Filename  string `json:"filename"`
}

// SharePreview 分享页展示的信息，设置了密码时隐藏文件信息
type SharePreview struct {
	Filename           string     `json:"filename,omitempty"`
	Size               uint64     `json:"size,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt"`
	RemainingDownloads *uint32    `json:"remainingDownloads"`
	PasswordRequired   bool       `json:"passwordRequired"`
}

// DownloadService 授权成功后才签发 URL
type DownloadService interface {
	Download(ctx context.Context, token string, meta RequestMeta) (*DownloadResult, error)
	Preview(ctx context.Context, token string, meta RequestMeta) (*SharePreview, error)
}

type downloadService struct {
	authorizer DownloadAuthorizer
	issuer     SignedURLIssuer
	ttl        time.Duration
}

func NewDownloadService(authorizer DownloadAuthorizer, issuer SignedURLIssuer, ttl time.Duration) DownloadService {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return &downloadService{authorizer: authorizer, issuer: issuer, ttl: ttl}
}

func (s *downloadService) Download(ctx context.Context, token string, meta RequestMeta) (*DownloadResult, error) {
	grant, err := s.authorizer.Authorize(ctx, token, meta)
	if err != nil {
		return nil, err
	}
	if grant.File == nil {
		return nil, fmt.Errorf("分享链接 %d 缺少关联文件", grant.Link.ID)
	}

	// 事务已提交，签发失败时这次下载仍然计数
	url, err := s.issuer.PreSignGetObjectURL(ctx, grant.File.OssBucket, grant.File.OssKey, displayName(grant.File), s.ttl)
	if err != nil {
		metrics.SignedURLFailures.Inc()
		logger.Error("Download: failed to issue signed URL after consume",
			zap.Uint64("linkID", grant.Link.ID),
			zap.Uint64("logID", grant.LogID),
			zap.Error(err))
		return nil, fmt.Errorf("生成下载链接失败: %w", err)
	}

	return &DownloadResult{SignedURL: url, Filename: displayName(grant.File)}, nil
}

func (s *downloadService) Preview(ctx context.Context, token string, meta RequestMeta) (*SharePreview, error) {
	link, err := s.authorizer.Inspect(ctx, token, meta)
	if err != nil {
		return nil, err
	}

	preview := &SharePreview{
		ExpiresAt:          link.ExpiresAt,
		RemainingDownloads: link.RemainingDownloads(),
		PasswordRequired:   link.HasPassword(),
	}
	if !preview.PasswordRequired && link.File != nil {
		preview.Filename = displayName(link.File)
		preview.Size = link.File.Size
	}
	return preview, nil
}

func displayName(f *models.File) string {
	if f.OriginalName != "" {
		return f.OriginalName
	}
	return f.FileName
}
