package repositories

import "github.com/google/wire"

// ProviderSet 暴露 Repository 构造器供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewJobRepository,
	NewNonceRepository,
)
