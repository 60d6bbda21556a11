package auth

import (
	"github.com/google/wire"

	"github.com/bionicotaku/slidesmith/internal/repositories"
)

// ProviderSet 暴露鉴权组件供 Wire 依赖注入使用。
var ProviderSet = wire.NewSet(
	NewAuthenticator,
	ProvideNonceStore,
)

// ProvideNonceStore 将 NonceRepository 适配为 NonceStore。
func ProvideNonceStore(repo *repositories.NonceRepository) NonceStore {
	return repo
}
