package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_id", UserID(c)),
		}
		if sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}

		switch {
		case c.Writer.Status() >= 500:
			zap.L().Error("http.request", fields...)
		case c.Writer.Status() >= 400:
			zap.L().Warn("http.request", fields...)
		default:
			zap.L().Info("http.request", fields...)
		}
	}
}
