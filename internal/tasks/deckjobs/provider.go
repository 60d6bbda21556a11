package deckjobs

import (
	"github.com/google/wire"

	"github.com/bionicotaku/slidesmith/internal/clients"
	"github.com/bionicotaku/slidesmith/internal/generation"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/gcs"
	"github.com/bionicotaku/slidesmith/internal/repositories"
)

// ProviderSet is deckjobs providers.
var ProviderSet = wire.NewSet(
	NewHandler,
	NewRunner,
	ProvideJobRepository,
	ProvideObjectStore,
	ProvidePageRenderer,
	ProvideDeckGenerator,
	ProvideDownloadSigner,
)

// ProvideJobRepository 适配仓储实现到处理器依赖。
func ProvideJobRepository(repo *repositories.JobRepository) jobRepository { return repo }

// ProvideObjectStore 适配对象存储到处理器依赖。
func ProvideObjectStore(store *gcs.ObjectStore) objectStore { return store }

// ProvidePageRenderer 适配渲染客户端到处理器依赖。
func ProvidePageRenderer(client *clients.RendererClient) pageRenderer { return client }

// ProvideDeckGenerator 适配生成器到处理器依赖。
func ProvideDeckGenerator(gen *generation.Generator) deckGenerator { return gen }

// ProvideDownloadSigner 适配 URL 签名器到处理器依赖。
func ProvideDownloadSigner(signer *gcs.URLSigner) downloadSigner { return signer }
