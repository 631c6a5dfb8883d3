package errors

// 通用错误 (服务 00)
var (
	ErrBadRequest   = NewRequestErr(ServiceCommon, 1, "Bad request", "请求错误")
	ErrInvalidParam = NewRequestErr(ServiceCommon, 2, "Invalid parameter", "参数无效")
	ErrNotFound     = NewNotFoundErr(ServiceCommon, 1, "Resource not found", "资源不存在")
	ErrInternal     = NewInternalErr(ServiceCommon, 1, "Internal server error", "服务器内部错误")
	ErrTimeout      = NewTimeoutErr(ServiceCommon, 1, "Operation timeout", "操作超时")
	ErrCache        = NewError(ServiceInfraCache, CategoryCache, 1, 500, "Cache operation failed", "缓存操作失败")
)
