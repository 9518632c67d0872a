package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cvpro-backend/internal/shared/auth"
	"cvpro-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
	userNameKey  = "userName"
	userRoleKey  = "userRole"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(token, wantType string) (auth.Claims, error)
}

// OptionalAuth attaches identity when a valid bearer token is present.
// A malformed or invalid token is rejected; a missing one is not.
func OptionalAuth(v TokenVerifier) gin.HandlerFunc {
	return authenticate(v, false)
}

// RequireAuth rejects requests without a valid access token.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return authenticate(v, true)
}

func authenticate(v TokenVerifier, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			if required {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "Authentication credentials were not provided.")
				return
			}
			c.Next()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if token == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		claims, err := v.Verify(token, auth.TokenAccess)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}

		c.Set(userIDKey, claims.UserID())
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		if claims.Username != "" {
			c.Set(userNameKey, claims.Username)
		}
		if claims.Role != "" {
			c.Set(userRoleKey, claims.Role)
		}
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserIDFromContext(c) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Authentication credentials were not provided.")
			return
		}
		if UserRoleFromContext(c) != role {
			respond.Error(c, http.StatusForbidden, "forbidden", "You do not have permission to perform this action.")
			return
		}
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return stringFromContext(c, userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	return stringFromContext(c, userEmailKey)
}

// UserNameFromContext fetches the username set by the auth middleware.
func UserNameFromContext(c *gin.Context) string {
	return stringFromContext(c, userNameKey)
}

// UserRoleFromContext fetches the role set by the auth middleware.
func UserRoleFromContext(c *gin.Context) string {
	return stringFromContext(c, userRoleKey)
}

func stringFromContext(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
