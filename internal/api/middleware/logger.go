package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// quietPrefixes are polled or static paths logged at debug level only.
var quietPrefixes = []string{"/api/html-status/", "/api/video-status/", "/static/", "/video/runs/", "/saved/"}

// LoggerMiddleware injects a request-scoped logger and logs each request.
// A client-supplied X-Request-ID is reused so retries can be correlated.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := logger.WithFields(c.Request.Context(), logger.Fields{
			logger.FieldRequestID: requestID,
			logger.FieldComponent: "api",
		})
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if q := c.Request.URL.RawQuery; q != "" {
			path += "?" + q
		}
		entry := logger.With(logger.Fields{
			logger.FieldStatus:     c.Writer.Status(),
			logger.FieldDurationMs: time.Since(start).Milliseconds(),
			logger.FieldSize:       c.Writer.Size(),
		})
		if isQuiet(c.Request.URL.Path) && c.Writer.Status() < 400 {
			entry.Debug(ctx, "%s %s", c.Request.Method, path)
			return
		}
		entry.Info(ctx, "%s %s (client_ip=%s)", c.Request.Method, path, c.ClientIP())
	}
}

func isQuiet(path string) bool {
	for _, p := range quietPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
