package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/internal/utils"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/huangang/sdrdesk/pkg/response"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextSession  = "session"
)

// AuthRequired checks the bearer token and attaches a Session to both the gin
// context and the request context. Whether the account may do anything is
// decided later by RequireAccess.
func AuthRequired(resolver services.AccessResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		claims, ok := parseBearer(authHeader)
		if !ok {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		attachSession(c, services.NewSession(claims.UserID, claims.Username, resolver))
		c.Next()
	}
}

// OptionalAuth attaches a Session when a valid bearer token is present and
// lets the request through either way.
func OptionalAuth(resolver services.AccessResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c.GetHeader("Authorization")); ok {
			attachSession(c, services.NewSession(claims.UserID, claims.Username, resolver))
		}
		c.Next()
	}
}

func parseBearer(authHeader string) (*utils.Claims, bool) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return nil, false
	}
	claims, err := utils.ParseToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

func attachSession(c *gin.Context, s *services.Session) {
	c.Set(ContextUserID, s.UserID)
	c.Set(ContextUsername, s.Username)
	c.Set(ContextSession, s)
	c.Request = c.Request.WithContext(services.WithSession(c.Request.Context(), s))
}

// RequireAccess lets the request through only when the session's access
// level is one of levels. Unknown or disabled accounts get 401.
func RequireAccess(levels ...services.AccessLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetSession(c)
		if session == nil {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}

		allowed, err := session.Allows(c.Request.Context(), levels...)
		switch {
		case errors.Is(err, services.ErrAccessDenied):
			response.Unauthorized(c, "account is unknown or disabled")
			c.Abort()
			return
		case err != nil:
			logger.Errorf("[Auth] Failed to resolve access for user %d: %v", session.UserID, err)
			response.ServerError(c, "internal server error")
			c.Abort()
			return
		case !allowed:
			response.Forbidden(c, "insufficient access level")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetSession returns the request's session, or nil for anonymous requests.
func GetSession(c *gin.Context) *services.Session {
	if v, exists := c.Get(ContextSession); exists {
		if s, ok := v.(*services.Session); ok {
			return s
		}
	}
	return nil
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		return id.(uint)
	}
	return 0
}

// GetUsername gets the current username from context
func GetUsername(c *gin.Context) string {
	if username, exists := c.Get(ContextUsername); exists {
		return username.(string)
	}
	return ""
}
