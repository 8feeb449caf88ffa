// README: Prometheus request metrics keyed by route template.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"hatid/internal/observability"
)

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		observability.RecordHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
