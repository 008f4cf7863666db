package catalog

import "go.uber.org/fx"

var Module = fx.Module("catalog.service",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(RegisterRoutes),
)
