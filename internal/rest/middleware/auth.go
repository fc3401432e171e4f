package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/willjksn/echoflux/internal/config"
	ierr "github.com/willjksn/echoflux/internal/errors"
	"github.com/willjksn/echoflux/internal/logger"
	"github.com/willjksn/echoflux/internal/types"
)

// AuthenticateMiddleware validates the HS256 bearer token issued by the
// identity service and stores the authenticated user id on the request
// context. Billing actions always act on behalf of the token's subject;
// user ids are never accepted from the request body.
func AuthenticateMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := authenticate(c, cfg)
		if err != nil {
			log.Debugw("authentication failed", "error", err, "path", c.Request.URL.Path)
			c.Error(err)
			c.Abort()
			return
		}

		ctx := types.SetUserID(c.Request.Context(), userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authenticate(c *gin.Context, cfg *config.Configuration) (string, error) {
	header := c.GetHeader("Authorization")
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == "" || tokenString == header {
		return "", ierr.NewError("missing bearer token").
			WithHint("Provide an Authorization bearer token").
			Mark(ierr.ErrUnauthenticated)
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(cfg.Auth.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", ierr.WithError(err).
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthenticated)
	}

	if cfg.Auth.Issuer != "" && claims.Issuer != cfg.Auth.Issuer {
		return "", ierr.NewError("unexpected token issuer").
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return "", ierr.NewError("token has no subject").
			WithHint("Invalid or expired token").
			Mark(ierr.ErrUnauthenticated)
	}

	return claims.Subject, nil
}
