package middleware

import (
	"Herald/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

const TraceHeader = "X-Trace-ID"

// TraceMiddleware 沿用上游传入的 trace_id，没有则生成
// 网关连接的 trace_id 会一直保留到连接断开
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = logger.NewTraceID("")
		}

		c.Set(logger.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Header(TraceHeader, traceID)
		c.Next()
	}
}
