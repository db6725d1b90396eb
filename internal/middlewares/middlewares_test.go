package middlewares

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetLogger(zap.NewNop())
}

var jwtCfg = &config.JWTConfig{SecretKey: "test-secret", Issuer: "go-sharelink", ExpiresIn: time.Hour}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(jwtCfg), func(c *gin.Context) {
		id, ok := utils.GetUserIDFromContext(c)
		if !ok {
			return
		}
		xerr.Success(c, http.StatusOK, "ok", gin.H{"user_id": id})
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) xerr.Response {
	t.Helper()
	var resp xerr.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()
	valid, err := utils.GenerateToken(5, "bob", jwtCfg.SecretKey, jwtCfg.Issuer, time.Hour)
	require.NoError(t, err)
	forged, err := utils.GenerateToken(5, "bob", "wrong", jwtCfg.Issuer, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   int
	}{
		{"missing", "", http.StatusUnauthorized, xerr.UnauthorizedCode},
		{"bad scheme", "Basic abc", http.StatusUnauthorized, xerr.UnauthorizedCode},
		{"forged", "Bearer " + forged, http.StatusUnauthorized, xerr.TokenInvalidCode},
		{"valid", "Bearer " + valid, http.StatusOK, xerr.SuccessCode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decode(t, w).Code)
		})
	}
}

func burstRouter(capacity int64) *gin.Engine {
	r := gin.New()
	r.POST("/download-file", RateLimiter(NewBurstLimiter(time.Hour, capacity)), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func postFrom(r *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/download-file", nil)
	req.Header.Set("X-Forwarded-For", ip)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_RejectsBurst(t *testing.T) {
	r := burstRouter(2)

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = postFrom(r, "203.0.113.9")
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusForbidden}, codes)

	resp := decode(t, last)
	assert.Equal(t, xerr.RateLimitedCode, resp.Code)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "rate_limited", data["reason"])
}

func TestRateLimiter_BucketsArePerClient(t *testing.T) {
	r := burstRouter(200)

	for i := 0; i < 200; i++ {
		require.Equal(t, http.StatusNoContent, postFrom(r, "6.6.6.6").Code)
	}
	assert.Equal(t, http.StatusForbidden, postFrom(r, "6.6.6.6").Code)

	// 另一个客户端不受影响
	assert.Equal(t, http.StatusNoContent, postFrom(r, "198.51.100.7").Code)
}

func TestBurstLimiter_PrunesFullBuckets(t *testing.T) {
	l := NewBurstLimiter(time.Hour, 5)
	for i := 0; i < maxBurstBuckets; i++ {
		l.bucket(fmt.Sprintf("10.0.%d.%d|/download-file", i/256, i%256))
	}
	drained := l.bucket("10.0.0.0|/download-file")
	drained.TakeAvailable(5)

	l.bucket("192.0.2.1|/download-file")
	assert.Len(t, l.buckets, 2, "only the drained bucket and the new one remain")
	assert.Same(t, drained, l.bucket("10.0.0.0|/download-file"))
}

func TestRecovery_HidesPanic(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("db password leaked") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "leaked")
	data, ok := decode(t, w).Data.(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["error_id"])
}

func TestContextTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/slow", ContextTimeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.Status(http.StatusGatewayTimeout)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}
