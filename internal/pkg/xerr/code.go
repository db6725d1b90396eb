package xerr

// 定义了统一的业务错误码
const (
	SuccessCode = 20000 // 通用成功码

	// --- 客户端请求错误系列 (400xx) ---
	InvalidParamsCode    = 40000 // 无效的请求参数
	ValidationFailedCode = 40001 // 参数验证失败
	FileTooLargeCode     = 40003 // 文件过大
	FileNameInvalidCode  = 40004 // 文件名无效
	InvalidTokenCode     = 40013 // 分享 token 缺失或格式错误

	// --- 认证与授权错误系列 (401xx) ---
	UnauthorizedCode = 40100 // 通用未授权
	TokenInvalidCode = 40101 // JWT 无效或过期

	// --- 权限错误系列 (403xx) ---
	ForbiddenCode              = 40300 // 通用无权限
	PermissionDeniedCode       = 40301 // 权限不足 (细分)
	SharePasswordRequiredCode  = 40302 // 分享需要密码
	SharePasswordIncorrectCode = 40303 // 分享密码不正确
	RateLimitedCode            = 40304 // 尝试次数过多
	LinkExpiredCode            = 40305 // 分享链接已过期
	LinkExhaustedCode          = 40306 // 分享链接下载次数已用完

	// --- 资源未找到错误系列 (404xx) ---
	NotFoundCode      = 40400 // 通用资源未找到
	FileNotFoundCode  = 40402 // 文件不存在
	ShareNotFoundCode = 40404 // 分享链接不存在

	// --- 业务逻辑冲突系列 (409xx) ---
	ConflictCode = 40905 // 唯一约束冲突(token 生成重试耗尽)

	// --- 服务器内部错误系列 (500xx) ---
	InternalServerErrorCode = 50000 // 服务器内部通用错误
	DatabaseErrorCode       = 50001 // 数据库操作失败
	StorageErrorCode        = 50002 // 存储服务操作失败（如MinIO）
	MQErrorCode             = 50003 // 消息队列操作失败
)
