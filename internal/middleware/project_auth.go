package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum-api/internal/database"
	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/models"
)

// RequireProjectAccess checks if the user is an active participant of the
// project named by the :id parameter.
func RequireProjectAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectIDStr := c.Param("id")
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var project models.Project
		if err := database.GetDB().First(&project, projectID).Error; err != nil {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		var participant models.ProjectParticipant
		err = database.GetDB().
			Where("project_id = ? AND user_id = ? AND removed_at IS NULL", projectID, userID).
			First(&participant).Error
		if err != nil {
			// Return 404 instead of 403 to avoid leaking project existence
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		c.Set("project", project)
		c.Set("project_participant", participant)
		c.Next()
	}
}

// RequireProjectOwner checks if the user owns the project loaded by
// RequireProjectAccess.
func RequireProjectOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		participantInterface, exists := c.Get("project_participant")
		if !exists {
			apierrors.Forbidden(c, "Project access required")
			c.Abort()
			return
		}

		participant, ok := participantInterface.(models.ProjectParticipant)
		if !ok {
			apierrors.InternalError(c, "Invalid project participant data")
			c.Abort()
			return
		}

		if participant.Role != models.RoleOwner {
			apierrors.Forbidden(c, "Only project owners can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}
