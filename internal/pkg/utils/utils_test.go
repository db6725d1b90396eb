package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(headers map[string]string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodPost, "/download-file", nil)
	req.RemoteAddr = "192.0.2.10:54321"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	c.Request = req
	return c
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1", "X-Real-IP": "198.51.100.1"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.1"}, "198.51.100.1"},
		{"empty forwarded falls through", map[string]string{"X-Forwarded-For": " , 10.0.0.1", "X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"peer", nil, "192.0.2.10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClientIP(newContext(tc.headers)))
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(7, "alice", "secret", "go-sharelink", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, "secret", "go-sharelink")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)

	_, err = ParseToken(tok, "other-secret", "go-sharelink")
	assert.Error(t, err)
	_, err = ParseToken(tok, "secret", "someone-else")
	assert.Error(t, err)

	expired, err := GenerateToken(7, "alice", "secret", "go-sharelink", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, "secret", "go-sharelink")
	assert.Error(t, err)
}

func TestGetUserIDFromContext(t *testing.T) {
	c := newContext(nil)
	_, ok := GetUserIDFromContext(c)
	assert.False(t, ok)
	assert.True(t, c.IsAborted())

	c = newContext(nil)
	c.Set(UserIDKey, uint64(9))
	id, ok := GetUserIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, uint64(9), id)
}
