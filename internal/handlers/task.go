package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum-api/internal/dto"
	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/services"
	"github.com/momentum-app/momentum-api/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns tasks in the current user's projects.
// Can filter by project_id, type and due_today.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		UserID:        userID,
		DueToday:      c.Query("due_today") == "true",
		SortByDueDate: c.Query("sort") == "due_date",
		Page:          params.Page,
		PageSize:      params.Limit,
	}

	if projectIDStr := c.Query("project_id"); projectIDStr != "" {
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		input.ProjectID = &projectID
	}
	if typeStr := c.Query("type"); typeStr != "" {
		taskType := models.TaskType(typeStr)
		input.Type = &taskType
	}

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a task with its per-user statuses.
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.taskService.GetTask(taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a one-off task or a whole habit series.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title           string     `json:"title" binding:"required"`
		Description     string     `json:"description"`
		Type            string     `json:"type"`
		DueDate         time.Time  `json:"due_date" binding:"required"`
		Difficulty      int        `json:"difficulty"`
		ProjectID       uint64     `json:"project_id" binding:"required"`
		Recurrence      string     `json:"recurrence"`
		Interval        int        `json:"interval"`
		Unit            string     `json:"unit"`
		EndDate         *time.Time `json:"end_date"`
		OccurrenceCount int        `json:"occurrence_count"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        models.TaskType(req.Type),
		DueDate:     req.DueDate,
		Difficulty:  req.Difficulty,
		ProjectID:   req.ProjectID,
		CreatorID:   userID,
		Recurrence: services.RecurrenceSpec{
			Pattern:         models.RecurrencePattern(req.Recurrence),
			Interval:        req.Interval,
			Unit:            services.RecurrenceUnit(req.Unit),
			EndDate:         req.EndDate,
			OccurrenceCount: req.OccurrenceCount,
		},
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	items := make([]dto.TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = dto.ToTaskDTO(task)
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": items})
}

// CompleteTask records the current user's completion of a task occurrence.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	type CompleteRequest struct {
		DifficultyRating int `json:"difficulty_rating"`
	}
	var req CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	result, err := h.taskService.CompleteTask(c.Request.Context(), services.CompleteTaskInput{
		TaskID:           taskID,
		UserID:           userID,
		DifficultyRating: req.DifficultyRating,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCompleteTaskResponse(*result))
}

// RecoverTask transitions the current user's archived occurrence back into a
// workable, penalized state.
func (h *TaskHandler) RecoverTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	ts, err := h.taskService.RecoverTask(c.Request.Context(), taskID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskStatusDTO(*ts))
}

// ListStatuses returns the current user's status rows with derived lifecycle
// state and ring color, optionally windowed by due date.
func (h *TaskHandler) ListStatuses(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	var from, to *time.Time
	if fromStr := c.Query("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid from date")
			return
		}
		from = &t
	}
	if toStr := c.Query("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid to date")
			return
		}
		to = &t
	}

	views, err := h.taskService.StatusViewsForUser(userID, from, to)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	items := make([]dto.TaskStatusViewDTO, len(views))
	for i, view := range views {
		items[i] = dto.ToTaskStatusViewDTO(view)
	}
	c.JSON(http.StatusOK, gin.H{"statuses": items})
}

// DeleteTask deletes a task. Creator only; cascades to statuses and logs.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrTaskStatusNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidDifficulty),
		errors.Is(err, services.ErrInsufficientParticipants),
		errors.Is(err, services.ErrRecoveryNotAllowed):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrNotProjectParticipant),
		errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
