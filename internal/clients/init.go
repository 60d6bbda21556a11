package clients

import (
	"github.com/google/wire"

	"github.com/bionicotaku/slidesmith/internal/generation"
)

// ProviderSet is clients providers.
var ProviderSet = wire.NewSet(
	NewChatCompleter,
	NewRendererClient,
	generation.NewGenerator,
)
