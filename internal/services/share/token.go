package share

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

const (
	// 32 字节随机数，256 bit 熵，编码后 43 个字符
	tokenBytes = 32
	// MaxTokenLength 超过该长度的 token 直接视为非法输入
	MaxTokenLength = 128
)

// TokenGenerator 生成分享 token
type TokenGenerator func() (string, error)

// GenerateToken 使用密码学安全的随机源生成 URL 安全的 token
func GenerateToken() (string, error) {
	return generateTokenFrom(rand.Reader)
}

func generateTokenFrom(r io.Reader) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: %v", xerr.ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidateToken 只校验格式，不查库
func ValidateToken(token string) error {
	if token == "" || len(token) > MaxTokenLength {
		return xerr.ErrInvalidToken
	}
	for i := 0; i < len(token); i++ {
		if !isTokenChar(token[i]) {
			return xerr.ErrInvalidToken
		}
	}
	return nil
}

// base64url 字母表
func isTokenChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '-' || c == '_'
}
