package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"tsmarket/pkg/config"
	"tsmarket/pkg/db"
	"tsmarket/pkg/gen"
	"tsmarket/pkg/hashistack/secretmanager"
	"tsmarket/pkg/logger"
	"tsmarket/pkg/otelcol"
	"tsmarket/pkg/redis"
	"tsmarket/pkg/sequence"
	"tsmarket/services/account"
	"tsmarket/services/bootstrap"
	"tsmarket/services/catalog"
	"tsmarket/services/ledger"
	"tsmarket/services/reward"
	"tsmarket/services/topup"
	"tsmarket/services/wheel"
)

// seed migrates the schema and loads the demo store, then exits.
func main() {
	var b *bootstrap.Service
	opts := []fx.Option{
		config.Module,
		logger.Module,
		gen.Module,
		otelcol.Module,
		db.Module,
		redis.Module,
		sequence.Module,
		fx.Provide(
			account.NewService,
			ledger.NewService,
			catalog.NewService,
			reward.NewService,
			wheel.NewService,
			topup.NewService,
			bootstrap.NewService,
		),
		fx.Populate(&b),
		fx.NopLogger,
	}
	if secretmanager.Enabled() {
		opts = append(opts, secretmanager.Module)
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)
	if err := run(app, b); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run(app *fx.App, b *bootstrap.Service) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := app.Stop(ctx); err != nil {
			zap.L().Error("failed to stop cleanly", zap.Error(err))
		}
	}()

	if err := b.Migrate(ctx); err != nil {
		return err
	}
	report, err := b.Seed(ctx)
	if err != nil {
		return err
	}

	zap.L().Info("seed complete", zap.Any("report", report))
	return nil
}
