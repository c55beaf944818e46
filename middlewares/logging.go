package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"eventhub/apperr"
	"eventhub/logger"
)

const RequestIDHeader = "X-Request-Id"

// RequestID reuses an incoming X-Request-Id or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString("requestId"),
			"client_ip", c.ClientIP(),
		}
		if uid := UserID(c); uid != "" {
			args = append(args, "user_id", uid)
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		switch {
		case status >= 500:
			logger.Error("request", args...)
		case status >= 400:
			logger.Warn("request", args...)
		default:
			logger.Info("request", args...)
		}
	}
}

// Recovery turns a panic into an opaque 500.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered", "path", c.Request.URL.Path, "request_id", c.GetString("requestId"), "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": apperr.PublicMessage(nil),
			"code":    apperr.CodeInternal,
		})
	})
}
