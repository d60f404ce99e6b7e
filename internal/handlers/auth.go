package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum-api/internal/cache"
	"github.com/momentum-app/momentum-api/internal/constants"
	"github.com/momentum-app/momentum-api/internal/dto"
	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/realtime"
	"github.com/momentum-app/momentum-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	users       *cache.UserPreload
	sessions    *realtime.SessionCaches
}

// NewAuthHandler creates a new AuthHandler. users and sessions may be nil.
func NewAuthHandler(authService *services.AuthService, users *cache.UserPreload, sessionCaches *realtime.SessionCaches) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		sessions:    sessionCaches,
	}
}

// Signup registers a new user.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Handle      string `json:"handle" binding:"required,min=3,max=30"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password" binding:"required"`
		Timezone    string `json:"timezone"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Signup(services.SignupInput{
		Handle:      req.Handle,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Timezone:    req.Timezone,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Handle   string `json:"handle" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Handle:   req.Handle,
		Password: req.Password,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	userID, _ := session.Get(constants.ContextKeyUserID).(uint64)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	// Session-scoped caches go with the session.
	if h.users != nil {
		h.users.Clear()
	}
	if userID != 0 {
		h.sessions.Drop(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user with their stats.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, err := h.authService.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrInvalidHandle):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrHandleTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrFailedToHashPassword),
		errors.Is(err, services.ErrFailedToCreateUser):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
