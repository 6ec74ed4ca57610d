package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/Digital-Creators-Team/slot-machine-registry/types"
	"github.com/gin-gonic/gin"
)

// Timeout creates a middleware that bounds request handling time
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		go func() {
			c.Next()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			c.AbortWithStatusJSON(http.StatusRequestTimeout, types.ErrorResponse{
				StatusCode: http.StatusRequestTimeout,
				IsSuccess:  false,
				Error: types.ErrorDetail{
					Timestamp:    time.Now().Format(time.RFC3339),
					Path:         c.Request.URL.Path,
					ErrorMessage: "Request timeout",
				},
			})
		}
	}
}
