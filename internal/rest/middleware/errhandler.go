package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/willjksn/echoflux/internal/errors"
)

// ErrorHandler renders the last error a handler recorded on the context as the
// standard error body, with the status derived from the error's sentinel.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
		}
	}
}
