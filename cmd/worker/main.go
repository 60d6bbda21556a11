// Package main 提供任务 worker 的独立进程入口，消费队列并执行转换流水线。
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/slidesmith/internal/infrastructure/configloader"
	"github.com/bionicotaku/slidesmith/internal/tasks/deckjobs"

	_ "go.uber.org/automaxprocs"
)

type workerApp struct {
	Runner *deckjobs.Runner
	Logger log.Logger
}

func newWorkerApp(logger log.Logger, runner *deckjobs.Runner) *workerApp {
	return &workerApp{Runner: runner, Logger: logger}
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	app, cleanup, err := wireWorker(ctx, configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	logger := app.Logger
	if logger == nil {
		logger = log.NewStdLogger(os.Stdout)
	}
	helper := log.NewHelper(logger)

	helper.Info("starting deck jobs worker")

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Runner.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("deck jobs worker stopped unexpectedly: %v", err)
		os.Exit(1)
	}

	helper.Info("deck jobs worker stopped")
}
