package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/urovital/clinic-api/pkg/errors"
	"github.com/urovital/clinic-api/pkg/httputil"
)

// Recovery handles panics and logs them appropriately
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error().
					Interface("error", rec).
					Str("stack", string(debug.Stack())).
					Str("method", c.Request.Method).
					Str("path", c.Request.URL.Path).
					Str("request_id", c.GetString(ContextRequestID)).
					Msg("Request panic recovered")

				httputil.RespondWithError(c, errors.Internal(fmt.Errorf("panic: %v", rec)))
			}
		}()
		c.Next()
	}
}
