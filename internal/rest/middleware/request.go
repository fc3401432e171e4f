package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/willjksn/echoflux/internal/types"
)

// RequestIDMiddleware attaches a request id to the context and echoes it back
// in the response headers, honoring an inbound X-Request-ID when present.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = types.GenerateUUID()
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Header("X-Request-ID", requestID)
	c.Next()
}
