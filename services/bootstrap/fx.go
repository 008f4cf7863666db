package bootstrap

import (
	"context"

	"tsmarket/pkg/config"

	"go.uber.org/fx"
)

var Module = fx.Module("bootstrap",
	fx.Provide(
		NewService,
	),
	fx.Invoke(runBootstrap),
)

// runBootstrap migrates and optionally seeds before the servers start.
func runBootstrap(lc fx.Lifecycle, b *Service, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.Database.AutoMigrate {
				if err := b.Migrate(ctx); err != nil {
					return err
				}
			}
			if cfg.Seed.Enable {
				if _, err := b.Seed(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
}
