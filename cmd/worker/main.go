package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"tsmarket/pkg/config"
	"tsmarket/pkg/db"
	"tsmarket/pkg/gen"
	"tsmarket/pkg/hashistack/secretmanager"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/otelcol"
	"tsmarket/pkg/task"
	"tsmarket/services/notification"
)

// The worker drains the notification queue filled by the API process.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		gen.Module,
		otelcol.Module,
		db.Module,
		task.Server,
		notification.WorkerModule,
		fxLogger,
	}
	if secretmanager.Enabled() {
		opts = append(opts, secretmanager.Module)
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})
