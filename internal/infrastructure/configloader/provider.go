package configloader

import "github.com/google/wire"

// ProviderSet 暴露配置相关 provider。
var ProviderSet = wire.NewSet(
	Build,
	ProvideBootstrap,
	ProvideServiceMetadata,
	ProvideServerConfig,
	ProvideDataConfig,
	ProvideGCSConfig,
	ProvideQueueConfig,
	ProvideLimitsConfig,
	ProvideAuthConfig,
	ProvideRendererConfig,
	ProvideGenerationConfig,
)

// ProvideBootstrap 返回 Bundle 中的 Bootstrap。
func ProvideBootstrap(b *Bundle) *Bootstrap { return b.Bootstrap }

// ProvideServiceMetadata 返回服务元信息。
func ProvideServiceMetadata(b *Bundle) ServiceMetadata { return b.Service }

// ProvideServerConfig 返回服务端配置。
func ProvideServerConfig(bc *Bootstrap) ServerConfig { return bc.Server }

// ProvideDataConfig 返回数据层配置。
func ProvideDataConfig(bc *Bootstrap) DataConfig { return bc.Data }

// ProvideGCSConfig 返回对象存储配置。
func ProvideGCSConfig(bc *Bootstrap) GCSConfig { return bc.GCS }

// ProvideQueueConfig 返回队列配置。
func ProvideQueueConfig(bc *Bootstrap) QueueConfig { return bc.Queue }

// ProvideLimitsConfig 返回上传限制配置。
func ProvideLimitsConfig(bc *Bootstrap) LimitsConfig { return bc.Limits }

// ProvideAuthConfig 返回鉴权配置。
func ProvideAuthConfig(bc *Bootstrap) AuthConfig { return bc.Auth }

// ProvideRendererConfig 返回渲染客户端配置。
func ProvideRendererConfig(bc *Bootstrap) RendererConfig { return bc.Renderer }

// ProvideGenerationConfig 返回生成服务配置。
func ProvideGenerationConfig(bc *Bootstrap) GenerationConfig { return bc.Generation }
