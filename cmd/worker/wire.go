//go:build wireinject
// +build wireinject

// Package main 为 worker 进程提供 Wire 依赖注入定义。
package main

import (
	"context"

	"github.com/bionicotaku/slidesmith/internal/clients"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/database"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/gcs"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/logger"
	"github.com/bionicotaku/slidesmith/internal/infrastructure/pubsub"
	"github.com/bionicotaku/slidesmith/internal/repositories"
	"github.com/bionicotaku/slidesmith/internal/tasks/deckjobs"

	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireWorker(ctx context.Context, params configloader.Params) (*workerApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		logger.ProviderSet,
		database.ProviderSet,
		repositories.NewJobRepository,
		gcs.ProviderSet,
		pubsub.NewComponent,
		pubsub.ProvideSubscriber,
		clients.ProviderSet,
		deckjobs.ProviderSet,
		newWorkerApp,
	))
}
