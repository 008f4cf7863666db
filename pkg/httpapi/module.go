package httpapi

import (
	"tsmarket/pkg/health"
	"tsmarket/pkg/middleware"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewRouter),
	fx.Invoke(registerHealthEndpoint),
)

// Router groups the API by audience. Member and Admin require a caller id;
// Admin additionally passes the casbin policy.
type Router struct {
	Engine *gin.Engine
	Public *gin.RouterGroup
	Member *gin.RouterGroup
	Admin  *gin.RouterGroup
}

type RouterParams struct {
	fx.In
	Engine   *gin.Engine
	Enforcer *casbin.Enforcer
	Roles    middleware.RoleResolver
}

func NewRouter(p RouterParams) *Router {
	api := p.Engine.Group("/api")
	member := api.Group("", middleware.RequireUser())
	admin := api.Group("/admin", middleware.RequireUser(), middleware.Authorize(p.Enforcer, p.Roles))

	return &Router{
		Engine: p.Engine,
		Public: api,
		Member: member,
		Admin:  admin,
	}
}

func registerHealthEndpoint(r *Router, h health.HealthService) {
	r.Engine.GET("/healthz", h.Liveness)
	r.Engine.GET("/readyz", h.Readiness)
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
