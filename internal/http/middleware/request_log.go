package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casehall-backend/internal/platform/ctxutil"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

// RequestLogger writes one line per request once the handler chain returns.
// Routes listed in quiet are logged only when they fail.
func RequestLogger(log *logger.Logger, quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, r := range quiet {
		skip[r] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		route := c.FullPath()
		status := c.Writer.Status()
		if _, ok := skip[route]; ok && status < 400 {
			return
		}
		if route == "" {
			route = "unmatched"
		}

		ctx := c.Request.Context()
		fields := append([]interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}, ctxutil.TraceFields(ctx)...)
		if id := ctxutil.GetIdentity(ctx); id != nil {
			fields = append(fields, "user_id", id.UserID.String(), "role", id.Role)
			if id.IsAttorney() {
				fields = append(fields, "attorney_profile_id", id.AttorneyProfileID.String())
			}
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
