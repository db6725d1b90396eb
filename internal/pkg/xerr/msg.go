package xerr

import "errors"

var (
	// 通用错误
	ErrInternalServer = errors.New("服务器内部错误")

	// 客户端请求错误
	ErrInvalidParams    = errors.New("无效的请求参数")
	ErrFileTooLarge     = errors.New("上传文件过大，超出限制")
	ErrFileNameInvalid  = errors.New("文件名包含非法字符")
	ErrInvalidToken     = errors.New("分享 token 缺失或格式不正确")
	ErrTokenGeneration  = errors.New("生成分享 token 失败")
	ErrTokenUnavailable = errors.New("无法生成唯一的分享 token")

	// 认证与授权错误
	ErrUnauthorized = errors.New("用户未授权")
	ErrTokenInvalid = errors.New("认证 Token 无效或已过期")

	// 权限错误
	ErrPermissionDenied       = errors.New("您没有操作此资源的权限")
	ErrSharePasswordRequired  = errors.New("分享链接需要密码")
	ErrSharePasswordIncorrect = errors.New("分享链接密码不正确")
	ErrRateLimited            = errors.New("尝试次数过多，请稍后再试")
	ErrLinkExpired            = errors.New("分享链接已过期")
	ErrLinkExhausted          = errors.New("分享链接下载次数已用完")

	// 资源未找到错误
	ErrFileNotFound  = errors.New("文件不存在")
	ErrShareNotFound = errors.New("分享链接不存在或已失效")

	// 数据库与外部服务错误
	ErrDatabaseError = errors.New("数据库操作失败")
	ErrStorageError  = errors.New("存储服务操作失败")
	ErrMQError       = errors.New("消息队列操作失败")
)

// Reason 返回下载被拒绝时对外暴露的稳定原因标识，未知错误返回空串
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrShareNotFound):
		return "invalid_link"
	case errors.Is(err, ErrLinkExpired):
		return "expired"
	case errors.Is(err, ErrLinkExhausted):
		return "exhausted"
	case errors.Is(err, ErrSharePasswordRequired):
		return "password_required"
	case errors.Is(err, ErrSharePasswordIncorrect):
		return "password_incorrect"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_input"
	}
	return ""
}
