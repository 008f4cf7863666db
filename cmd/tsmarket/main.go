package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"tsmarket/pkg/accesscontrol"
	"tsmarket/pkg/config"
	"tsmarket/pkg/db"
	"tsmarket/pkg/gen"
	"tsmarket/pkg/hashistack/secretmanager"
	"tsmarket/pkg/health"
	"tsmarket/pkg/httpapi"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/otelcol"
	"tsmarket/pkg/redis"
	"tsmarket/pkg/sequence"
	"tsmarket/pkg/server"
	"tsmarket/pkg/task"
	"tsmarket/services/account"
	"tsmarket/services/bootstrap"
	"tsmarket/services/catalog"
	"tsmarket/services/ledger"
	"tsmarket/services/notification"
	"tsmarket/services/order"
	"tsmarket/services/reward"
	"tsmarket/services/topup"
	"tsmarket/services/wheel"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		gen.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		task.Client,
		health.Module,
		accesscontrol.Module,
		server.ProvideHTTPServer,
		httpapi.Module,
		account.Module,
		ledger.Module,
		catalog.Module,
		order.Module,
		reward.Module,
		wheel.Module,
		topup.Module,
		notification.Module,
		bootstrap.Module,
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
