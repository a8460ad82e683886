package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/middleware"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/huangang/sdrdesk/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	switch {
	case err == nil:
		response.Success(c, resp)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUserDisabled):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrInvalidAuthType), errors.Is(err, services.ErrLDAPDisabled):
		response.BadRequest(c, err.Error())
	default:
		logger.Errorf("[Auth] Login failed for %s: %v", req.Username, err)
		response.ServerError(c, "authentication failed")
	}
}

// GetCurrentUser returns the current logged-in user
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.authService.GetUserByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// GetAuthConfig returns authentication configuration
// GET /api/auth/config
func (h *AuthHandler) GetAuthConfig(c *gin.Context) {
	response.Success(c, gin.H{"ldap_enabled": h.authService.IsLDAPEnabled()})
}

// Logout is client side; the token simply expires.
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// ChangePassword POST /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), middleware.GetUserID(c), &req); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password changed"})
}
