package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/metrics"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
)

// AccessLog 记录请求日志并更新 HTTP 计数
// 查询串可能带有分享 token，不写入日志
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(status)).Inc()

		logger.Info(route,
			zap.String("method", c.Request.Method),
			zap.Int("status", status),
			zap.Duration("time-cost", time.Since(startTime)),
			zap.String("ip", utils.ClientIP(c)),
			zap.String("user-agent", c.Request.UserAgent()),
			zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
		)
	}
}
