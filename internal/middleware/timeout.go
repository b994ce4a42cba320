package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urovital/clinic-api/pkg/httputil"
)

// Timeout bounds the request context. Handlers run on the request
// goroutine; when the deadline passed and nothing was written yet the
// client gets 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, httputil.Response{
				Success: false,
				Error: &httputil.Error{
					Code:      http.StatusGatewayTimeout,
					Message:   "request timeout",
					RequestID: c.GetString(ContextRequestID),
				},
			})
		}
	}
}
