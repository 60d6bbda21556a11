// Package metadata 提供请求元信息（request id）在 Context 中的存取工具，
// 供中间件、控制器与错误编码器共享。
package metadata

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// EnsureRequestID 归一化调用方传入的 request id；为空时生成一个新的。
func EnsureRequestID(header string) string {
	if trimmed := strings.TrimSpace(header); trimmed != "" {
		return trimmed
	}
	return uuid.NewString()
}

// InjectRequestID 将 request id 注入 Context。
func InjectRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext 读取上游注入的 request id，未注入时返回空串。
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
