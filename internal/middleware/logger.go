package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger returns a middleware that logs HTTP requests. Bodies are never
// logged: they carry credentials and clinical text.
func Logger(base zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := c.Writer.Status()
		ev := base.Info()
		msg := "Request processed"
		switch {
		case statusCode >= 500:
			ev = base.Error()
			msg = "Server error"
		case statusCode >= 400:
			ev = base.Warn()
			msg = "Client error"
		}

		ev = ev.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", c.FullPath()).
			Int("status", statusCode).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent())

		if actor, ok := CurrentActor(c); ok {
			ev = ev.Str("actor_id", actor.ID)
		}
		if err := c.Errors.Last(); err != nil {
			ev = ev.Err(err.Err)
		}
		ev.Msg(msg)
	}
}
