package accesscontrol

import (
	"tsmarket/pkg/config"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const defaultModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

var defaultPolicies = [][]string{
	{RoleAdmin, "/api/admin/*", "*"},
}

var Module = fx.Module("accesscontrol",
	fx.Provide(New),
)

// New builds the enforcer from ACCESS_CONTROL.MODEL / ACCESS_CONTROL.POLICY
// files when both are configured, from the built-in admin policy otherwise.
func New(cfg *config.Config) (*casbin.Enforcer, error) {
	ac := cfg.AccessControl
	if ac.Model != "" && ac.Policy != "" {
		e, err := casbin.NewEnforcer(ac.Model, ac.Policy)
		if err != nil {
			zap.L().Error("failed to load access control files", zap.Error(err))
			return nil, err
		}
		return e, nil
	}

	return NewDefault()
}

func NewDefault() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(defaultModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if _, err := e.AddPolicies(defaultPolicies); err != nil {
		return nil, err
	}

	return e, nil
}
