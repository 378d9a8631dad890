package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/apiresponses"
)

const AuthHeaderKey = "Authorization"

// AuthHandler guards the admin surface with HS256 bearer tokens signed by a
// shared secret. The admin listing was historically unauthenticated; it is
// now disabled entirely until a secret is configured.
type AuthHandler struct {
	secret []byte
	log    *zap.SugaredLogger
}

func NewAuth(log *zap.SugaredLogger, secret string) *AuthHandler {
	if secret == "" {
		log.Warnw("No admin JWT secret configured, admin endpoints disabled")
	}
	return &AuthHandler{
		secret: []byte(secret),
		log:    log,
	}
}

func (a *AuthHandler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		if len(a.secret) == 0 {
			apiresponses.RespondServiceUnavailable(c, "admin access not configured")
			c.Abort()
			return
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		// delete the header to avoid logging it by accident
		c.Request.Header.Del(AuthHeaderKey)
		if !strings.HasPrefix(authHeader, "Bearer ") {
			apiresponses.RespondUnauthorized(c, "No Bearer token provided in Authorization header")
			c.Abort()
			return
		}
		bearer := authHeader[7:]

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			a.log.Debugw("Rejected admin token", "error", err)
			apiresponses.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set("user_id", sub)
		}
		c.Next()
	}
}
