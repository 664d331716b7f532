package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Audit logs one structured line per successful projection mutation.
func Audit(logger *zap.Logger, action string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		fields := []zap.Field{
			zap.String("action", action),
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("ip", c.ClientIP()),
		}
		if claims := CurrentClaims(c); claims != nil {
			fields = append(fields, zap.String("actor", claims.UserID))
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, zap.String("projection_id", id))
		}
		if code := c.Param("code"); code != "" {
			fields = append(fields, zap.String("course", code))
		}
		logger.Info("audit", fields...)
	}
}
