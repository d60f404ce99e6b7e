package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/services"
)

// AIHandler coordinates AI-assisted task drafting.
type AIHandler struct {
	aiService *services.AIService
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(aiService *services.AIService) *AIHandler {
	return &AIHandler{
		aiService: aiService,
	}
}

// DraftTasks extracts task drafts from free-form text. The drafts are
// suggestions only; the client confirms each one through the normal task
// creation endpoint.
func (h *AIHandler) DraftTasks(c *gin.Context) {
	type DraftRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	drafts, err := h.aiService.DraftTasks(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, services.ErrAIDraftingDisabled) {
			apierrors.ServiceUnavailable(c, "Task drafting is not configured")
			return
		}
		apierrors.InternalError(c, "Failed to draft tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}
