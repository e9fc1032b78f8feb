package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/monitoring"
)

// Metrics observes every request under its gin route pattern.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		monitoring.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
