package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/metrics"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
)

const (
	maxIPLength        = 64
	maxUserAgentLength = 512
)

// RequestMeta 匿名下载请求携带的客户端信息
type RequestMeta struct {
	IPAddress string
	UserAgent string
	Password  *string
}

// Grant 一次已提交的下载授权
type Grant struct {
	LogID uint64
	Link  *models.ShareLink
	File  *models.File
}

// DownloadAuthorizer 对裸 token 做限流、校验并原子消费一次下载
type DownloadAuthorizer interface {
	// Authorize 成功时下载计数、成功流水和下载日志已在同一事务中提交
	Authorize(ctx context.Context, token string, meta RequestMeta) (*Grant, error)
	// Inspect 只读预览，经过同样的限流，不消费次数
	Inspect(ctx context.Context, token string, meta RequestMeta) (*models.ShareLink, error)
}

type downloadAuthorizer struct {
	limiter  RateLimiter
	registry LinkRegistry
	links    repositories.ShareLinkRepository
	attempts repositories.DownloadAttemptRepository
	logs     repositories.DownloadLogRepository
	tm       repositories.TransactionManager
	now      func() time.Time
}

type AuthorizerOption func(*downloadAuthorizer)

func WithAuthorizerClock(now func() time.Time) AuthorizerOption {
	return func(a *downloadAuthorizer) { a.now = now }
}

func NewDownloadAuthorizer(
	limiter RateLimiter,
	registry LinkRegistry,
	links repositories.ShareLinkRepository,
	attempts repositories.DownloadAttemptRepository,
	logs repositories.DownloadLogRepository,
	tm repositories.TransactionManager,
	opts ...AuthorizerOption,
) DownloadAuthorizer {
	a := &downloadAuthorizer{
		limiter:  limiter,
		registry: registry,
		links:    links,
		attempts: attempts,
		logs:     logs,
		tm:       tm,
		now:      utcNow,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *downloadAuthorizer) Authorize(ctx context.Context, token string, meta RequestMeta) (grant *Grant, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveAuthorization(outcome(err), time.Since(start))
	}()

	meta = normalizeMeta(meta)
	link, now, err := a.validate(ctx, token, meta)
	if err != nil {
		return nil, err
	}

	// 4. 密码校验，失败计入 token 失败窗口
	if err := checkPassword(link, meta.Password); err != nil {
		if xerr.Reason(err) == "" {
			return nil, err
		}
		return nil, a.reject(ctx, token, meta, now, err)
	}

	// 5. 原子消费
	grant, err = a.consume(ctx, link, token, meta, now)
	if err != nil {
		if xerr.Reason(err) != "" {
			// 事务已回滚，在事务外补记失败流水
			return nil, a.reject(ctx, token, meta, now, err)
		}
		logger.Error("Authorize: consume transaction failed",
			zap.Uint64("linkID", link.ID), zap.String("ip", meta.IPAddress), zap.Error(err))
		return nil, err
	}

	logger.Info("Authorize: download granted",
		zap.Uint64("linkID", link.ID),
		zap.Uint64("logID", grant.LogID),
		zap.String("ip", meta.IPAddress))
	return grant, nil
}

func (a *downloadAuthorizer) Inspect(ctx context.Context, token string, meta RequestMeta) (link *models.ShareLink, err error) {
	meta = normalizeMeta(meta)
	link, _, err = a.validate(ctx, token, meta)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// validate 依次完成格式校验、限流、查找和可用性判断
func (a *downloadAuthorizer) validate(ctx context.Context, token string, meta RequestMeta) (*models.ShareLink, time.Time, error) {
	// 1. 格式非法直接拒绝，不写流水
	if err := ValidateToken(token); err != nil {
		return nil, time.Time{}, err
	}
	now := a.now()

	// 2. 限流，被限流的请求不写流水
	if err := a.limiter.Check(ctx, meta.IPAddress, token, now); err != nil {
		return nil, now, err
	}

	// 3. 精确查找
	link, err := a.registry.LookupByToken(ctx, token)
	if err != nil {
		if errors.Is(err, xerr.ErrShareNotFound) {
			return nil, now, a.reject(ctx, token, meta, now, err)
		}
		return nil, now, err
	}

	if reason := link.Unusable(now); reason != nil {
		return nil, now, a.reject(ctx, token, meta, now, reason)
	}
	return link, now, nil
}

// consume 条件自增、成功流水和下载日志在一个事务里，全部成功或全部回滚
func (a *downloadAuthorizer) consume(ctx context.Context, link *models.ShareLink, token string, meta RequestMeta, now time.Time) (*Grant, error) {
	var entry *models.DownloadLog
	err := a.tm.WithTransaction(ctx, func(tx *gorm.DB) error {
		links := a.links.WithTx(tx)
		ok, err := links.ConsumeDownload(ctx, link.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// 校验之后被并发请求用完或被停用，重新读取以确定原因
			current, err := links.FindByID(ctx, link.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return xerr.ErrShareNotFound
			}
			if reason := current.Unusable(now); reason != nil {
				return reason
			}
			return fmt.Errorf("分享链接 %d 消费失败但状态仍可用", link.ID)
		}

		attempt := &models.DownloadAttempt{
			IPAddress:   meta.IPAddress,
			Token:       token,
			AttemptedAt: now,
			Success:     true,
		}
		if err := a.attempts.WithTx(tx).Create(ctx, attempt); err != nil {
			return err
		}

		entry = &models.DownloadLog{
			ShareLinkID:  link.ID,
			IPAddress:    meta.IPAddress,
			UserAgent:    meta.UserAgent,
			DownloadedAt: now,
		}
		return a.logs.WithTx(tx).Create(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	link.CurrentDownloads++
	return &Grant{LogID: entry.ID, Link: link, File: link.File}, nil
}

// reject 记录一条失败流水后返回拒绝原因
func (a *downloadAuthorizer) reject(ctx context.Context, token string, meta RequestMeta, now time.Time, reason error) error {
	attempt := &models.DownloadAttempt{
		IPAddress:   meta.IPAddress,
		Token:       token,
		AttemptedAt: now,
		Success:     false,
	}
	if err := a.attempts.Create(ctx, attempt); err != nil {
		logger.Error("reject: failed to record download attempt",
			zap.String("ip", meta.IPAddress), zap.NamedError("reason", reason), zap.Error(err))
		return err
	}
	logger.Info("download rejected", zap.String("ip", meta.IPAddress), zap.String("reason", xerr.Reason(reason)))
	return reason
}

func normalizeMeta(meta RequestMeta) RequestMeta {
	if meta.IPAddress == "" {
		meta.IPAddress = "unknown"
	}
	if len(meta.IPAddress) > maxIPLength {
		meta.IPAddress = meta.IPAddress[:maxIPLength]
	}
	if len(meta.UserAgent) > maxUserAgentLength {
		meta.UserAgent = strings.ToValidUTF8(meta.UserAgent[:maxUserAgentLength], "")
	}
	return meta
}

func outcome(err error) string {
	if err == nil {
		return "granted"
	}
	if r := xerr.Reason(err); r != "" {
		return r
	}
	return "error"
}
