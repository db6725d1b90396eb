package xerr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3Eeeecho/go-sharelink/internal/pkg/logger"
)

// CodeError 结构体用于在服务层传递带有业务码的错误
type CodeError struct {
	Code int   // 业务错误码
	Err  error // 被包裹的底层错误
}

func (e *CodeError) Error() string {
	return e.Err.Error()
}

// Unwrap 返回被包裹的底层错误，支持 errors.Is
func (e *CodeError) Unwrap() error {
	return e.Err
}

func NewCodeError(code int, err error) *CodeError {
	return &CodeError{Code: code, Err: err}
}

// Is 判断错误是否为指定的错误类型
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Response 是通用 JSON 响应结构
type Response struct {
	Code    int    `json:"code"`    // 业务状态码
	Message string `json:"message"` // 消息
	Data    any    `json:"data"`    // 响应数据
}

// JSONResponse 发送标准 JSON 响应
func JSONResponse(c *gin.Context, httpStatus int, code int, message string, data any) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success 成功响应
func Success(c *gin.Context, httpStatus int, message string, data any) {
	JSONResponse(c, httpStatus, SuccessCode, message, data)
}

// Error 错误响应
func Error(c *gin.Context, httpStatus int, code int, message string) {
	JSONResponse(c, httpStatus, code, message, nil)
}

// AbortWithError 终止请求并发送错误响应
func AbortWithError(c *gin.Context, httpStatus int, code int, message string) {
	Error(c, httpStatus, code, message)
	c.Abort()
}

// InternalError 记录完整错误并只向客户端返回一个错误 ID
func InternalError(c *gin.Context, msg string, err error) {
	errID := uuid.NewString()
	logger.Error(msg,
		zap.String("error_id", errID),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	JSONResponse(c, http.StatusInternalServerError, InternalServerErrorCode,
		ErrInternalServer.Error(), gin.H{"error_id": errID})
}
