package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum-api/internal/dto"
	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/services"
)

// LeaderboardHandler coordinates leaderboard HTTP handlers.
type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

// NewLeaderboardHandler creates a new LeaderboardHandler.
func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
	}
}

// GetFriendsLeaderboard ranks the current user against their accepted friends
// by total score.
func (h *LeaderboardHandler) GetFriendsLeaderboard(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	entries, err := h.leaderboardService.FriendsLeaderboard(userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to build leaderboard")
		return
	}

	items := make([]dto.LeaderboardEntryDTO, len(entries))
	for i, e := range entries {
		items[i] = dto.LeaderboardEntryDTO{
			Rank:  e.Rank,
			User:  dto.ToUserDTO(e.User),
			Stats: dto.ToUserStatsDTO(e.Stats),
		}
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": items})
}
