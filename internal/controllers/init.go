package controllers

import (
	"time"

	"github.com/google/wire"
)

// ProviderSet is controllers providers.
var ProviderSet = wire.NewSet(
	ProvideHandlerTimeouts,
	NewBaseHandler,
	NewUploadHandler,
	NewJobHandler,
)

// ProvideHandlerTimeouts 返回默认的 Handler 超时策略。
// 写路径包含外部签名与发布调用，留出更宽的预算。
func ProvideHandlerTimeouts() HandlerTimeouts {
	return HandlerTimeouts{
		Default: 10 * time.Second,
		Command: 10 * time.Second,
		Query:   5 * time.Second,
	}
}
