package utils

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP 依次取 X-Forwarded-For 第一个值、X-Real-IP、连接对端地址
func ClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return c.RemoteIP()
}
