package errors

// 服务代码 (AA)
const (
	// ServiceCommon 通用错误
	ServiceCommon = 0

	// ServiceInfraCache 缓存基础设施
	ServiceInfraCache = 11

	// ServiceRAG 问答与检索服务
	ServiceRAG = 20

	// ServiceThirdPartyMarket 行情数据第三方服务
	ServiceThirdPartyMarket = 94
)

// 类别代码 (BB)
const (
	CategorySuccess   = 0
	CategoryRequest   = 1
	CategoryAuth      = 2
	CategoryResource  = 4
	CategoryConflict  = 5
	CategoryRateLimit = 6
	CategoryInternal  = 7
	CategoryDatabase  = 8
	CategoryCache     = 9
	CategoryNetwork   = 10
	CategoryTimeout   = 11
	CategoryConfig    = 12
)

// MakeCode builds an AABBCCC code.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// GetCategory returns the category part of a code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// IsClientError reports whether the code falls in a 4xx category.
func IsClientError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryRequest && category <= CategoryRateLimit
}

// IsServerError reports whether the code falls in a 5xx category.
func IsServerError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryInternal && category <= CategoryConfig
}
