package share

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/repositories"
	"github.com/3Eeeecho/go-sharelink/internal/setup"
)

func init() {
	logger.SetLogger(zap.NewNop())
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// spyRegistry 统计 LookupByToken 调用次数
type spyRegistry struct {
	LinkRegistry
	lookups atomic.Int64
}

func (s *spyRegistry) LookupByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	s.lookups.Add(1)
	return s.LinkRegistry.LookupByToken(ctx, token)
}

type env struct {
	db         *gorm.DB
	clock      *fakeClock
	links      repositories.ShareLinkRepository
	files      repositories.FileRepository
	attempts   repositories.DownloadAttemptRepository
	logs       repositories.DownloadLogRepository
	registry   *spyRegistry
	authorizer DownloadAuthorizer
}

type envOption func(*env)

// withLogRepo 包装下载日志仓库，用于注入故障
func withLogRepo(wrap func(repositories.DownloadLogRepository) repositories.DownloadLogRepository) envOption {
	return func(e *env) { e.logs = wrap(e.logs) }
}

func newEnv(t *testing.T, opts ...envOption) *env {
	t.Helper()
	db, err := setup.OpenDatabase(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { setup.CloseDatabase(db) })

	e := &env{
		db:       db,
		clock:    newFakeClock(),
		links:    repositories.NewShareLinkRepository(db),
		files:    repositories.NewDBFileRepository(db),
		attempts: repositories.NewDownloadAttemptRepository(db),
		logs:     repositories.NewDownloadLogRepository(db),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = &spyRegistry{LinkRegistry: NewLinkRegistry(e.links, e.files, e.logs, WithRegistryClock(e.clock.Now))}
	e.authorizer = NewDownloadAuthorizer(
		NewRateLimiter(e.attempts, DefaultRateLimitPolicy()),
		e.registry,
		e.links,
		e.attempts,
		e.logs,
		repositories.NewTransactionManager(db),
		WithAuthorizerClock(e.clock.Now),
	)
	return e
}

var fileSeq atomic.Uint64

func (e *env) seedFile(t *testing.T, ownerID uint64) *models.File {
	t.Helper()
	n := fileSeq.Add(1)
	f := &models.File{
		UUID:         fmt.Sprintf("file-%d", n),
		UserID:       ownerID,
		FileName:     fmt.Sprintf("stored-%d.pdf", n),
		OriginalName: "report.pdf",
		Size:         1024,
		OssBucket:    "shares",
		OssKey:       fmt.Sprintf("uploads/%d/%d/report.pdf", ownerID, n),
		Status:       models.StatusNormal,
	}
	require.NoError(t, e.files.Create(context.Background(), f))
	return f
}

// seedLink 直接写库，绕过 registry 以便构造任意状态
func (e *env) seedLink(t *testing.T, mutate func(l *models.ShareLink)) *models.ShareLink {
	t.Helper()
	f := e.seedFile(t, 1)
	tok, err := GenerateToken()
	require.NoError(t, err)
	l := &models.ShareLink{
		FileID:    f.ID,
		Token:     tok,
		IsActive:  true,
		CreatedAt: e.clock.Now(),
		UpdatedAt: e.clock.Now(),
	}
	if mutate != nil {
		mutate(l)
	}
	require.NoError(t, e.links.Create(context.Background(), l))
	return l
}

func (e *env) reload(t *testing.T, id uint64) *models.ShareLink {
	t.Helper()
	l, err := e.links.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, l)
	return l
}

func (e *env) countAttempts(t *testing.T, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.DownloadAttempt{}).Where(where, args...).Count(&n).Error)
	return n
}

func (e *env) countLogs(t *testing.T, linkID uint64) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.DownloadLog{}).Where("share_link_id = ?", linkID).Count(&n).Error)
	return n
}

func u32(v uint32) *uint32 { return &v }

func strPtr(s string) *string { return &s }

func meta(ip string) RequestMeta {
	return RequestMeta{IPAddress: ip, UserAgent: "curl/8.5"}
}
