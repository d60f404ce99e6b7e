package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum-api/internal/dto"
	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/services"
)

// FriendshipHandler coordinates friendship-related HTTP handlers.
type FriendshipHandler struct {
	friendshipService *services.FriendshipService
}

// NewFriendshipHandler creates a new FriendshipHandler.
func NewFriendshipHandler(friendshipService *services.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService: friendshipService,
	}
}

// ListFriendships returns the current user's friendships, optionally filtered
// by status.
func (h *FriendshipHandler) ListFriendships(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var status *models.FriendshipStatus
	if statusStr := c.Query("status"); statusStr != "" {
		s := models.FriendshipStatus(statusStr)
		status = &s
	}

	rows, err := h.friendshipService.ListFriendships(userID, status)
	if err != nil {
		respondFriendshipError(c, err)
		return
	}

	items := make([]dto.FriendshipDTO, len(rows))
	for i, f := range rows {
		items[i] = dto.ToFriendshipDTO(f, userID)
	}
	c.JSON(http.StatusOK, gin.H{"friendships": items})
}

// SendRequest sends a friend request to the user behind a handle.
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SendRequestBody struct {
		Handle string `json:"handle" binding:"required"`
	}

	var req SendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	friendship, err := h.friendshipService.SendRequest(c.Request.Context(), userID, req.Handle)
	if err != nil {
		respondFriendshipError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToFriendshipDTO(*friendship, userID))
}

// RespondToRequest accepts or declines a pending friend request.
func (h *FriendshipHandler) RespondToRequest(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	friendshipID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid friendship ID")
		return
	}

	type RespondBody struct {
		Accept bool `json:"accept"`
	}
	var req RespondBody
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	friendship, err := h.friendshipService.RespondToRequest(c.Request.Context(), friendshipID, userID, req.Accept)
	if err != nil {
		respondFriendshipError(c, err)
		return
	}

	if friendship == nil {
		c.JSON(http.StatusOK, gin.H{"message": "Friend request declined"})
		return
	}
	c.JSON(http.StatusOK, dto.ToFriendshipDTO(*friendship, userID))
}

// RemoveFriend deletes a friendship from either side.
func (h *FriendshipHandler) RemoveFriend(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	friendUserID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	if err := h.friendshipService.RemoveFriend(c.Request.Context(), userID, friendUserID); err != nil {
		respondFriendshipError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Friend removed successfully"})
}

func respondFriendshipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFriendshipNotFound),
		errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrCannotBefriendSelf),
		errors.Is(err, services.ErrRequestNotPending):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrFriendshipExists):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNotFriendRequestTarget):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
