package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"travel-planner/internal/common/logger"
)

const (
	requestIDKey    = "requestId"
	requestIDHeader = "X-Request-ID"
)

// RequestID returns the id assigned by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger tags each request with an id and logs it once it completes.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"requestId":   id,
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"clientIp":    c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request completed", fields)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warn("request completed", fields)
		default:
			log.Info("request completed", fields)
		}
	}
}

func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic while serving request", map[string]interface{}{
					"requestId": RequestID(c),
					"panic":     rec,
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
					Error:     "internal error",
					RequestID: RequestID(c),
				})
			}
		}()
		c.Next()
	}
}
