package logger

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
)

// ProviderSet is logger providers.
var ProviderSet = wire.NewSet(ProvideLogger)

// ProvideLogger 按服务元信息构建全局 Logger。
func ProvideLogger(meta configloader.ServiceMetadata) (log.Logger, error) {
	cfg := DefaultConfig(meta.Name, meta.Version)
	if meta.InstanceID != "" {
		cfg.HostID = meta.InstanceID
	}
	if meta.Environment != "" {
		cfg.Env = meta.Environment
	}
	return NewLogger(cfg)
}
