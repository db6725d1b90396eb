package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3Eeeecho/go-sharelink/internal/models"
)

func TestFileMapRoundTrip(t *testing.T) {
	mime := "application/pdf"
	created := time.Date(2026, 5, 4, 10, 30, 0, 123, time.UTC)
	file := &models.File{
		ID:           42,
		UUID:         "4b0f7a2e-0000-4000-8000-000000000042",
		UserID:       7,
		FileName:     "report.pdf",
		OriginalName: "Q1 report.pdf",
		Size:         1 << 40,
		MimeType:     &mime,
		OssBucket:    "shares",
		OssKey:       "uploads/7/abc/report.pdf",
		Status:       models.StatusNormal,
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	// Redis 返回的都是字符串
	raw := make(map[string]string)
	for k, v := range FileToMap(file) {
		raw[k] = v.(string)
	}

	got, err := MapToFile(raw)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
	assert.Equal(t, file.UserID, got.UserID)
	assert.Equal(t, file.Size, got.Size)
	assert.Equal(t, file.OssKey, got.OssKey)
	require.NotNil(t, got.MimeType)
	assert.Equal(t, mime, *got.MimeType)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestMapToFileNilPointer(t *testing.T) {
	got, err := MapToFile(map[string]string{"id": "1", "mime_type": "", "created_at": ""})
	require.NoError(t, err)
	assert.Nil(t, got.MimeType)
	assert.True(t, got.CreatedAt.IsZero())
}
