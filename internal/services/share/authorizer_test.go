package share

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
)

func TestAuthorize_LastDownloadThenExhausted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	link := e.seedLink(t, func(l *models.ShareLink) {
		l.MaxDownloads = u32(3)
		l.CurrentDownloads = 2
	})

	grant, err := e.authorizer.Authorize(ctx, link.Token, meta("10.0.0.1"))
	require.NoError(t, err)
	assert.NotZero(t, grant.LogID)
	require.NotNil(t, grant.File)
	assert.Equal(t, "report.pdf", grant.File.OriginalName)

	assert.Equal(t, uint32(3), e.reload(t, link.ID).CurrentDownloads)
	assert.Equal(t, int64(1), e.countLogs(t, link.ID))
	assert.Equal(t, int64(1), e.countAttempts(t, "token = ? AND success = ?", link.Token, true))

	_, err = e.authorizer.Authorize(ctx, link.Token, meta("10.0.0.1"))
	assert.ErrorIs(t, err, xerr.ErrLinkExhausted)
	assert.Equal(t, uint32(3), e.reload(t, link.ID).CurrentDownloads)
	assert.Equal(t, int64(1), e.countLogs(t, link.ID))
	assert.Equal(t, int64(1), e.countAttempts(t, "token = ? AND success = ?", link.Token, false))
}

func TestAuthorize_ExpiredLink(t *testing.T) {
	e := newEnv(t)
	past := e.clock.Now().Add(-time.Minute)
	link := e.seedLink(t, func(l *models.ShareLink) { l.ExpiresAt = &past })

	_, err := e.authorizer.Authorize(context.Background(), link.Token, meta("10.0.0.2"))
	assert.ErrorIs(t, err, xerr.ErrLinkExpired)
	assert.Equal(t, int64(1), e.countAttempts(t, "token = ? AND success = ?", link.Token, false))
	assert.Equal(t, int64(0), e.countLogs(t, link.ID))
	assert.Equal(t, uint32(0), e.reload(t, link.ID).CurrentDownloads)
}

func TestAuthorize_ExpiresBetweenRequests(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	expires := e.clock.Now().Add(10 * time.Minute)
	link := e.seedLink(t, func(l *models.ShareLink) { l.ExpiresAt = &expires })

	_, err := e.authorizer.Authorize(ctx, link.Token, meta("10.0.0.3"))
	require.NoError(t, err)

	e.clock.Advance(10 * time.Minute)
	_, err = e.authorizer.Authorize(ctx, link.Token, meta("10.0.0.3"))
	assert.ErrorIs(t, err, xerr.ErrLinkExpired)
}

func TestAuthorize_UnknownAndInactiveTokens(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	unknown, err := GenerateToken()
	require.NoError(t, err)
	_, err = e.authorizer.Authorize(ctx, unknown, meta("10.0.0.4"))
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
	assert.Equal(t, int64(1), e.countAttempts(t, "token = ? AND success = ?", unknown, false))

	inactive := e.seedLink(t, func(l *models.ShareLink) { l.IsActive = false })
	_, err = e.authorizer.Authorize(ctx, inactive.Token, meta("10.0.0.4"))
	assert.ErrorIs(t, err, xerr.ErrShareNotFound)
	assert.Equal(t, int64(0), e.countLogs(t, inactive.ID))
	assert.Equal(t, int64(1), e.countAttempts(t, "token = ? AND success = ?", inactive.Token, false))
}

func TestAuthorize_MalformedTokenWritesNothing(t *testing.T) {
	e := newEnv(t)

	for _, tok := range []string{"", "abc%", "has space"} {
		_, err := e.authorizer.Authorize(context.Background(), tok, meta("10.0.0.5"))
		assert.ErrorIs(t, err, xerr.ErrInvalidToken)
	}
	assert.Equal(t, int64(0), e.countAttempts(t, "1 = 1"))
	assert.Equal(t, int64(0), e.registry.lookups.Load())
}

func TestAuthorize_IPRateLimit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	link := e.seedLink(t, nil)

	for i := 1; i <= 20; i++ {
		_, err := e.authorizer.Authorize(ctx, link.Token, meta("192.0.2.1"))
		require.NoError(t, err, "request %d", i)
		e.clock.Advance(time.Minute)
	}

	lookups := e.registry.lookups.Load()
	require.Equal(t, int64(20), lookups)

	_, err := e.authorizer.Authorize(ctx, link.Token, meta("192.0.2.1"))
	assert.ErrorIs(t, err, xerr.ErrRateLimited)
	// 被限流的请求不查链接，也不写流水
	assert.Equal(t, lookups, e.registry.lookups.Load())
	assert.Equal(t, int64(20), e.countAttempts(t, "ip_address = ?", "192.0.2.1"))
	assert.Equal(t, uint32(20), e.reload(t, link.ID).CurrentDownloads)

	// 其他 IP 不受影响
	_, err = e.authorizer.Authorize(ctx, link.Token, meta("192.0.2.2"))
	assert.NoError(t, err)

	// 窗口滑过第一条记录后恢复
	e.clock.Advance(41 * time.Minute)
	_, err = e.authorizer.Authorize(ctx, link.Token, meta("192.0.2.1"))
	assert.NoError(t, err)
}

func TestAuthorize_TokenFailureLimitSkipsLookup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tok, err := GenerateToken()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := e.authorizer.Authorize(ctx, tok, meta(fmt.Sprintf("198.51.100.%d", i)))
		require.ErrorIs(t, err, xerr.ErrShareNotFound)
	}
	lookups := e.registry.lookups.Load()
	assert.Equal(t, int64(10), lookups)

	// 任意 IP 再请求都被限流，且不再查找链接
	_, err = e.authorizer.Authorize(ctx, tok, meta("203.0.113.9"))
	assert.ErrorIs(t, err, xerr.ErrRateLimited)
	assert.Equal(t, lookups, e.registry.lookups.Load())
	assert.Equal(t, int64(10), e.countAttempts(t, "token = ?", tok))
}

func TestAuthorize_ConcurrentAtMostN(t *testing.T) {
	for _, max := range []uint32{1, 3} {
		t.Run(fmt.Sprintf("max=%d", max), func(t *testing.T) {
			e := newEnv(t)
			link := e.seedLink(t, func(l *models.ShareLink) { l.MaxDownloads = u32(max) })

			const workers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				granted   int
				exhausted int
			)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := e.authorizer.Authorize(context.Background(), link.Token, meta(fmt.Sprintf("172.16.0.%d", i)))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						granted++
					case errors.Is(err, xerr.ErrLinkExhausted):
						exhausted++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, int(max), granted)
			assert.Equal(t, workers-int(max), exhausted)
			assert.Equal(t, max, e.reload(t, link.ID).CurrentDownloads)
			assert.Equal(t, int64(max), e.countLogs(t, link.ID))
			assert.Equal(t, int64(workers), e.countAttempts(t, "token = ?", link.Token))
		})
	}
}

func TestAuthorize_PasswordProtected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	file := e.seedFile(t, 1)
	link, err := e.registry.Create(ctx, 1, file.ID, LinkPolicy{Password: strPtr("s3cret")})
	require.NoError(t, err)

	_, err = e.authorizer.Authorize(ctx, link.Token, meta("10.1.0.1"))
	assert.ErrorIs(t, err, xerr.ErrSharePasswordRequired)

	m := meta("10.1.0.1")
	m.Password = strPtr("wrong")
	_, err = e.authorizer.Authorize(ctx, link.Token, m)
	assert.ErrorIs(t, err, xerr.ErrSharePasswordIncorrect)
	assert.Equal(t, int64(2), e.countAttempts(t, "token = ? AND success = ?", link.Token, false))

	m.Password = strPtr("s3cret")
	_, err = e.authorizer.Authorize(ctx, link.Token, m)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), e.reload(t, link.ID).CurrentDownloads)
}

// failingLogRepo 写下载日志时失败，用于验证整个消费事务回滚
type failingLogRepo struct {
	repositories.DownloadLogRepository
}

func (f failingLogRepo) WithTx(tx *gorm.DB) repositories.DownloadLogRepository {
	return failingLogRepo{f.DownloadLogRepository.WithTx(tx)}
}

func (f failingLogRepo) Create(context.Context, *models.DownloadLog) error {
	return errors.New("disk full")
}

func TestAuthorize_StoreFailureRollsBack(t *testing.T) {
	e := newEnv(t, withLogRepo(func(r repositories.DownloadLogRepository) repositories.DownloadLogRepository {
		return failingLogRepo{r}
	}))
	link := e.seedLink(t, func(l *models.ShareLink) { l.MaxDownloads = u32(1) })

	_, err := e.authorizer.Authorize(context.Background(), link.Token, meta("10.2.0.1"))
	require.Error(t, err)
	assert.Empty(t, xerr.Reason(err))

	// 计数和成功流水都没有留下
	assert.Equal(t, uint32(0), e.reload(t, link.ID).CurrentDownloads)
	assert.Equal(t, int64(0), e.countAttempts(t, "token = ?", link.Token))
	assert.Equal(t, int64(0), e.countLogs(t, link.ID))
}

func TestInspect_DoesNotConsume(t *testing.T) {
	e := newEnv(t)
	link := e.seedLink(t, func(l *models.ShareLink) { l.MaxDownloads = u32(1) })

	got, err := e.authorizer.Inspect(context.Background(), link.Token, meta("10.3.0.1"))
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, uint32(0), e.reload(t, link.ID).CurrentDownloads)
	assert.Equal(t, int64(0), e.countAttempts(t, "token = ?", link.Token))
}
