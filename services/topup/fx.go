package topup

import (
	"tsmarket/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type throttleParams struct {
	fx.In
	Redis  *redis.Client `optional:"true"`
	Config *config.Config
}

// newThrottle returns nil when no redis client is wired, which turns the
// redeem limit off.
func newThrottle(p throttleParams) Throttle {
	if p.Redis == nil {
		return nil
	}
	return NewRedisThrottle(p.Redis, p.Config.Game.RedeemAttempts, p.Config.Game.RedeemWindow)
}

var Module = fx.Module("topup.service",
	fx.Provide(newThrottle, NewService, NewHandler),
	fx.Invoke(RegisterRoutes),
)
