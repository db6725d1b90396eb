package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/config"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/utils"
	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

// AuthMiddleware 只保护所有者接口，匿名下载路径不经过这里
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从请求头获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Authorization header is required")
			return
		}

		// Token 格式通常是 "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.UnauthorizedCode, "Invalid Authorization header format")
			return
		}

		// 2. 解析和验证 Token
		claims, err := utils.ParseToken(parts[1], cfg.SecretKey, cfg.Issuer)
		if err != nil {
			logger.Debug("AuthMiddleware: token rejected", zap.Error(err))
			xerr.AbortWithError(c, http.StatusUnauthorized, xerr.TokenInvalidCode, xerr.ErrTokenInvalid.Error())
			return
		}

		// 3. 将用户信息存储到 Gin Context 中，以便后续 Handler 使用
		c.Set(utils.UserIDKey, claims.UserID)
		c.Set("username", claims.Username)

		c.Next()
	}
}
