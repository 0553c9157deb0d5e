package main

import (
	"context"
	"os"

	"go.uber.org/fx"

	"github.com/qanoon/halp/internal/server"
	"github.com/qanoon/halp/pkg/logger"
)

func main() {
	app := fx.New(
		server.Module,
		fx.NopLogger,
	)

	startCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		logger.Get().Sugar().Errorw("application startup failed", "error", err)
		os.Exit(1)
	}

	<-app.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		logger.Get().Sugar().Errorw("application shutdown failed", "error", err)
	}
}
