package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/torao/kazzla/internal/utils"
)

func LogRequest() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		entry := log.WithFields(log.Fields{
			"traceId": utils.TraceIdFrom(ctx),
			"service": utils.ExtractServiceName(),
		})
		utils.LogEntry(entry, "info", "Request received: "+ctx.Request.Method+" "+ctx.Request.URL.Path)

		ctx.Next()

		entry = entry.WithField("latency", time.Since(start).String())
		utils.LogEntry(entry, "info", "Request completed: "+strconv.Itoa(ctx.Writer.Status()))
	}
}
