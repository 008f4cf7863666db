package middleware

import (
	"context"
	"strings"

	"tsmarket/pkg/errutil"

	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// UserIDHeader carries the authenticated caller, set by the auth gateway.
	UserIDHeader = "X-User-ID"

	userIDKey = "user_id"
	roleKey   = "role"
)

// RoleResolver returns the access-control subject for a user.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(UserIDHeader)); id != "" {
			c.Set(userIDKey, id)
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func Role(c *gin.Context) string {
	return c.GetString(roleKey)
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			_ = c.Error(errutil.Unauthorized("missing caller identity", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Authorize resolves the caller's role and checks (role, path, method)
// against the enforcer.
func Authorize(enforcer casbin.IEnforcer, roles RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := roles.RoleOf(c.Request.Context(), UserID(c))
		if err != nil {
			_ = c.Error(errutil.Unauthorized("unknown caller", err))
			c.Abort()
			return
		}
		c.Set(roleKey, role)

		ok, err := enforcer.Enforce(role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			zap.L().Error("failed to evaluate access policy", zap.Error(err))
			_ = c.Error(errutil.Internal("failed to evaluate access policy", err))
			c.Abort()
			return
		}
		if !ok {
			_ = c.Error(errutil.Forbidden("insufficient permissions", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
