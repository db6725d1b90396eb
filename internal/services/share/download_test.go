package share

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3Eeeecho/go-sharelink/internal/models"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

type issuedURL struct {
	bucket, object, filename string
	expiry                   time.Duration
	// 签发时链接已提交的下载次数
	committed uint32
}

// fakeIssuer 记录每次签发请求
type fakeIssuer struct {
	t     *testing.T
	e     *env
	calls []issuedURL
	err   error
}

func (f *fakeIssuer) PreSignGetObjectURL(ctx context.Context, bucket, object, filename string, expiry time.Duration) (string, error) {
	var link models.ShareLink
	require.NoError(f.t, f.e.db.Where("id = (SELECT share_link_id FROM download_logs ORDER BY id DESC LIMIT 1)").First(&link).Error)
	f.calls = append(f.calls, issuedURL{bucket: bucket, object: object, filename: filename, expiry: expiry, committed: link.CurrentDownloads})
	if f.err != nil {
		return "", f.err
	}
	return "https://storage.example.com/" + bucket + "/" + object + "?sig=abc", nil
}

func TestDownloadService_IssuesAfterCommit(t *testing.T) {
	e := newEnv(t)
	issuer := &fakeIssuer{t: t, e: e}
	svc := NewDownloadService(e.authorizer, issuer, 15*time.Minute)
	link := e.seedLink(t, func(l *models.ShareLink) { l.MaxDownloads = u32(2) })

	res, err := svc.Download(context.Background(), link.Token, meta("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", res.Filename)
	assert.Contains(t, res.SignedURL, "sig=")

	require.Len(t, issuer.calls, 1)
	call := issuer.calls[0]
	assert.Equal(t, "shares", call.bucket)
	assert.Equal(t, e.reload(t, link.ID).File.OssKey, call.object)
	assert.Equal(t, "report.pdf", call.filename)
	assert.Equal(t, 15*time.Minute, call.expiry)
	assert.Equal(t, uint32(1), call.committed)
}

func TestDownloadService_RejectedRequestIssuesNothing(t *testing.T) {
	e := newEnv(t)
	issuer := &fakeIssuer{t: t, e: e}
	svc := NewDownloadService(e.authorizer, issuer, 0)
	link := e.seedLink(t, func(l *models.ShareLink) {
		l.MaxDownloads = u32(1)
		l.CurrentDownloads = 1
	})

	_, err := svc.Download(context.Background(), link.Token, meta("10.0.0.1"))
	assert.ErrorIs(t, err, xerr.ErrLinkExhausted)
	assert.Empty(t, issuer.calls)
}

func TestDownloadService_IssuerFailureStillCounts(t *testing.T) {
	e := newEnv(t)
	issuer := &fakeIssuer{t: t, e: e, err: errors.New("storage offline")}
	svc := NewDownloadService(e.authorizer, issuer, time.Minute)
	link := e.seedLink(t, nil)

	_, err := svc.Download(context.Background(), link.Token, meta("10.0.0.1"))
	require.Error(t, err)
	assert.Empty(t, xerr.Reason(err))
	assert.Equal(t, uint32(1), e.reload(t, link.ID).CurrentDownloads)
	assert.Equal(t, int64(1), e.countLogs(t, link.ID))
}

func TestDownloadService_DefaultTTL(t *testing.T) {
	e := newEnv(t)
	issuer := &fakeIssuer{t: t, e: e}
	svc := NewDownloadService(e.authorizer, issuer, 0)
	link := e.seedLink(t, nil)

	_, err := svc.Download(context.Background(), link.Token, meta("10.0.0.1"))
	require.NoError(t, err)
	require.Len(t, issuer.calls, 1)
	assert.Equal(t, DefaultSignedURLTTL, issuer.calls[0].expiry)
}

func TestDownloadService_Preview(t *testing.T) {
	e := newEnv(t)
	svc := NewDownloadService(e.authorizer, &fakeIssuer{t: t, e: e}, 0)
	ctx := context.Background()

	open := e.seedLink(t, func(l *models.ShareLink) {
		l.MaxDownloads = u32(4)
		l.CurrentDownloads = 1
	})
	p, err := svc.Preview(ctx, open.Token, meta("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", p.Filename)
	assert.Equal(t, uint64(1024), p.Size)
	require.NotNil(t, p.RemainingDownloads)
	assert.Equal(t, uint32(3), *p.RemainingDownloads)
	assert.False(t, p.PasswordRequired)
	assert.Equal(t, uint32(1), e.reload(t, open.ID).CurrentDownloads)

	file := e.seedFile(t, 1)
	locked, err := e.registry.Create(ctx, 1, file.ID, LinkPolicy{Password: strPtr("pw")})
	require.NoError(t, err)
	p, err = svc.Preview(ctx, locked.Token, meta("10.0.0.1"))
	require.NoError(t, err)
	assert.True(t, p.PasswordRequired)
	assert.Empty(t, p.Filename)
	assert.Nil(t, p.RemainingDownloads)
}
