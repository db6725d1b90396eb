package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/xerr"
)

// respondError 业务错误映射为 HTTP 状态和业务码，其余一律按 500 处理
// 下载相关的拒绝在 data.reason 中带上稳定的原因标识
func respondError(c *gin.Context, op string, err error) {
	var (
		status int
		code   int
	)
	switch {
	case errors.Is(err, xerr.ErrInvalidToken):
		status, code = http.StatusBadRequest, xerr.InvalidTokenCode
	case errors.Is(err, xerr.ErrInvalidParams):
		status, code = http.StatusBadRequest, xerr.InvalidParamsCode
	case errors.Is(err, xerr.ErrFileNameInvalid):
		status, code = http.StatusBadRequest, xerr.FileNameInvalidCode
	case errors.Is(err, xerr.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, xerr.FileTooLargeCode
	case errors.Is(err, xerr.ErrRateLimited):
		status, code = http.StatusForbidden, xerr.RateLimitedCode
	case errors.Is(err, xerr.ErrLinkExpired):
		status, code = http.StatusForbidden, xerr.LinkExpiredCode
	case errors.Is(err, xerr.ErrLinkExhausted):
		status, code = http.StatusForbidden, xerr.LinkExhaustedCode
	case errors.Is(err, xerr.ErrSharePasswordRequired):
		status, code = http.StatusForbidden, xerr.SharePasswordRequiredCode
	case errors.Is(err, xerr.ErrSharePasswordIncorrect):
		status, code = http.StatusForbidden, xerr.SharePasswordIncorrectCode
	case errors.Is(err, xerr.ErrPermissionDenied):
		status, code = http.StatusForbidden, xerr.PermissionDeniedCode
	case errors.Is(err, xerr.ErrShareNotFound):
		status, code = http.StatusNotFound, xerr.ShareNotFoundCode
	case errors.Is(err, xerr.ErrFileNotFound):
		status, code = http.StatusNotFound, xerr.FileNotFoundCode
	case errors.Is(err, xerr.ErrTokenUnavailable):
		status, code = http.StatusConflict, xerr.ConflictCode
	default:
		xerr.InternalError(c, op, err)
		return
	}

	var data any
	if reason := xerr.Reason(err); reason != "" {
		data = gin.H{"reason": reason}
	}
	xerr.JSONResponse(c, status, code, err.Error(), data)
}
