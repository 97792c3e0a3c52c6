package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/torao/kazzla/internal/utils"
)

// InjectTrace assigns every request a trace id, returned in X-Trace-Id and attached to the
// request context so that service logs carry it as well.
func InjectTrace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := utils.GenerateTraceId()
		c.Set(utils.TraceIdKey.String(), traceId)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), utils.TraceIdKey, traceId))
		c.Header("X-Trace-Id", traceId)
		c.Next()
	}
}
