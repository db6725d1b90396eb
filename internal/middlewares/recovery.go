package middlewares

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

// Recovery panic 转为带错误 ID 的 500，不向客户端暴露内部信息
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				logger.Error("Recovered from panic",
					zap.String("router", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.String("stack", string(debug.Stack())))
				xerr.InternalError(c, "panic", err)
				c.Abort()
			}
		}()
		c.Next()
	}
}
