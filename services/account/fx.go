package account

import (
	"tsmarket/pkg/middleware"

	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(
		NewService,
		func(s *Service) middleware.RoleResolver { return s },
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)
