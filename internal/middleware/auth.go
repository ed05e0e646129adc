package middleware

import (
	"net/http"
	"strings"

	"learnsphere/internal/models"

	"github.com/gin-gonic/gin"
)

const sessionKey = "learnsphere.session"

type TokenVerifier interface {
	VerifyToken(tokenString string) (*models.Claims, error)
}

// Authenticate resolves the bearer token once and stores the caller's
// session on the context.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_TOKEN",
			})
			return
		}

		claims, err := verifier.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
				"code":  "INVALID_TOKEN",
			})
			return
		}

		c.Set(sessionKey, claims.Session())
		c.Next()
	}
}

// OptionalAuthenticate stores the session when a valid bearer token is
// present and lets anonymous callers through otherwise.
func OptionalAuthenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if found && token != "" {
			if claims, err := verifier.VerifyToken(token); err == nil {
				c.Set(sessionKey, claims.Session())
			}
		}
		c.Next()
	}
}

func SessionFrom(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return models.Session{}, false
	}
	session, ok := v.(models.Session)
	return session, ok
}

// RoleRequired lets through callers holding one of roles. Admins always
// pass.
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := SessionFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_SESSION",
			})
			return
		}
		if session.Role == models.RoleAdmin || session.Is(roles...) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "Insufficient role",
			"code":  "FORBIDDEN",
		})
	}
}
