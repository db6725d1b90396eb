package share

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
)

// RateLimitPolicy 两个独立的滑动窗口阈值
type RateLimitPolicy struct {
	IPMaxAttempts    int64         // 单个 IP 在窗口内的全部尝试上限
	TokenMaxFailures int64         // 单个 token 在窗口内的失败尝试上限
	Window           time.Duration // 窗口长度
}

func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{IPMaxAttempts: 20, TokenMaxFailures: 10, Window: time.Hour}
}

// PolicyFromConfig 未配置的项使用默认值
func PolicyFromConfig(cfg config.RateLimitConfig) RateLimitPolicy {
	p := DefaultRateLimitPolicy()
	if cfg.IPMaxAttempts > 0 {
		p.IPMaxAttempts = cfg.IPMaxAttempts
	}
	if cfg.TokenMaxFailures > 0 {
		p.TokenMaxFailures = cfg.TokenMaxFailures
	}
	if cfg.Window > 0 {
		p.Window = cfg.Window
	}
	return p
}

// RateLimiter 只读检查，不写流水
type RateLimiter interface {
	// Check 超限返回 xerr.ErrRateLimited
	Check(ctx context.Context, ip, token string, now time.Time) error
}

// ledgerRateLimiter 基于 download_attempts 计数，多实例部署时天然共享
type ledgerRateLimiter struct {
	attempts repositories.DownloadAttemptRepository
	policy   RateLimitPolicy
}

func NewRateLimiter(attempts repositories.DownloadAttemptRepository, policy RateLimitPolicy) RateLimiter {
	return &ledgerRateLimiter{attempts: attempts, policy: policy}
}

func (l *ledgerRateLimiter) Check(ctx context.Context, ip, token string, now time.Time) error {
	since := now.Add(-l.policy.Window)

	// 1. IP 维度: 成功和失败都计数
	n, err := l.attempts.CountByIPSince(ctx, ip, since)
	if err != nil {
		return err
	}
	if n >= l.policy.IPMaxAttempts {
		logger.Warn("IP rate limit exceeded", zap.String("ip", ip), zap.Int64("attempts", n))
		return xerr.ErrRateLimited
	}

	// 2. token 维度: 只计失败
	n, err = l.attempts.CountFailuresByTokenSince(ctx, token, since)
	if err != nil {
		return err
	}
	if n >= l.policy.TokenMaxFailures {
		logger.Warn("token failure limit exceeded", zap.String("ip", ip), zap.Int64("failures", n))
		return xerr.ErrRateLimited
	}
	return nil
}
