package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"maintenance-tracker/internal/observability"
)

// Metrics 记录请求耗时直方图
// route 取路由模板（如 /api/v1/activities/:id），未匹配的请求记为 "unmatched"
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
