package middleware

import (
	"tsmarket/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last error attached with c.Error as the JSON error
// envelope. Errors that are not BaseErrors become 500s.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		be := errutil.From(last.Err)
		status := be.Code.HTTPStatus()
		if status >= 500 {
			zap.L().Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(last.Err),
			)
		}

		c.AbortWithStatusJSON(status, be.JSON())
	}
}
