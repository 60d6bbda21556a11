//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/slidesmith/internal/auth"
	"github.com/bionicotaku/slidesmith/internal/controllers"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/database"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/gcs"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/logger"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/pubsub"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/redisdb"
	"github.com/bionicotaku/slidesmith/internal/repositories"
	"github.com/bionicotaku/slidesmith/internal/server"
	"github.com/bionicotaku/slidesmith/internal/services"

	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp init kratos application.
func wireApp(ctx context.Context, params configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		redisdb.ProviderSet,
		repositories.ProviderSet,
		auth.ProviderSet,
		gcs.ProvideURLSigner,
		pubsub.NewComponent,
		pubsub.ProvidePublisher,
		services.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		newApp,
	))
}
