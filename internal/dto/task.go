package dto

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/services"
)

// TaskDTO represents a task occurrence in API responses
type TaskDTO struct {
	ID          uint64                   `json:"id"`
	Title       string                   `json:"title"`
	Description string                   `json:"description"`
	Type        models.TaskType          `json:"type"`
	Recurrence  models.RecurrencePattern `json:"recurrence,omitempty"`
	DueDate     time.Time                `json:"due_date"`
	Difficulty  int                      `json:"difficulty"`
	CreatorID   uint64                   `json:"creator_id"`
	ProjectID   uint64                   `json:"project_id"`
	SeriesID    *uint64                  `json:"series_id,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	Creator     *UserDTO                 `json:"creator,omitempty"`
	Statuses    []TaskStatusDTO          `json:"statuses,omitempty"`
}

// TaskStatusDTO represents one user's status on a task occurrence
type TaskStatusDTO struct {
	ID               uint64                 `json:"id"`
	TaskID           uint64                 `json:"task_id"`
	UserID           uint64                 `json:"user_id"`
	Status           models.LifecycleStatus `json:"status"`
	EffectiveDueDate time.Time              `json:"effective_due_date"`
	RingColor        models.RingColor       `json:"ring_color"`
	Timing           models.TimingMarker    `json:"timing,omitempty"`
	RecoveredAt      *time.Time             `json:"recovered_at,omitempty"`
	ArchivedAt       *time.Time             `json:"archived_at,omitempty"`
	User             *UserDTO               `json:"user,omitempty"`
}

// CompletionDTO represents a completion log entry in API responses
type CompletionDTO struct {
	ID               uint64              `json:"id"`
	TaskID           uint64              `json:"task_id"`
	UserID           uint64              `json:"user_id"`
	CompletedAt      time.Time           `json:"completed_at"`
	DifficultyRating int                 `json:"difficulty_rating"`
	XPEarned         int64               `json:"xp_earned"`
	PenaltyApplied   bool                `json:"penalty_applied"`
	Timing           models.TimingMarker `json:"timing"`
}

// CompleteTaskResponse represents the outcome of completing a task
type CompleteTaskResponse struct {
	Completion    CompletionDTO `json:"completion"`
	Status        TaskStatusDTO `json:"status"`
	Stats         UserStatsDTO  `json:"stats"`
	FullyComplete bool          `json:"fully_complete"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
}

// TaskStatusViewDTO represents a status row with its derived state
type TaskStatusViewDTO struct {
	Status    TaskStatusDTO          `json:"status"`
	Task      *TaskDTO               `json:"task,omitempty"`
	Derived   models.LifecycleStatus `json:"derived_status"`
	RingColor models.RingColor       `json:"ring_color"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Type:        task.Type,
		Recurrence:  task.Recurrence,
		DueDate:     task.DueDate,
		Difficulty:  task.Difficulty,
		CreatorID:   task.CreatorID,
		ProjectID:   task.ProjectID,
		SeriesID:    task.SeriesID,
		CreatedAt:   task.CreatedAt,
	}

	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}

	for _, ts := range task.Statuses {
		dto.Statuses = append(dto.Statuses, ToTaskStatusDTO(ts))
	}

	return dto
}

// ToTaskStatusDTO converts a TaskStatusEntity model to TaskStatusDTO
func ToTaskStatusDTO(ts models.TaskStatusEntity) TaskStatusDTO {
	dto := TaskStatusDTO{
		ID:               ts.ID,
		TaskID:           ts.TaskID,
		UserID:           ts.UserID,
		Status:           ts.Status,
		EffectiveDueDate: ts.EffectiveDueDate,
		RingColor:        ts.RingColor,
		Timing:           ts.Timing,
		RecoveredAt:      ts.RecoveredAt,
		ArchivedAt:       ts.ArchivedAt,
	}
	if ts.User.ID != 0 {
		user := ToUserDTO(ts.User)
		dto.User = &user
	}
	return dto
}

// ToCompletionDTO converts a CompletionLog model to CompletionDTO
func ToCompletionDTO(log models.CompletionLog) CompletionDTO {
	return CompletionDTO{
		ID:               log.ID,
		TaskID:           log.TaskID,
		UserID:           log.UserID,
		CompletedAt:      log.CompletedAt,
		DifficultyRating: log.DifficultyRating,
		XPEarned:         log.XPEarned,
		PenaltyApplied:   log.PenaltyApplied,
		Timing:           log.Timing,
	}
}

// ToCompleteTaskResponse converts a completion result to its response shape
func ToCompleteTaskResponse(result services.CompleteTaskResult) CompleteTaskResponse {
	return CompleteTaskResponse{
		Completion:    ToCompletionDTO(result.Log),
		Status:        ToTaskStatusDTO(result.Status),
		Stats:         ToUserStatsDTO(result.Stats),
		FullyComplete: result.FullyComplete,
	}
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
	}
}

// ToTaskStatusViewDTO converts a derived status view to its response shape
func ToTaskStatusViewDTO(view services.TaskStatusView) TaskStatusViewDTO {
	dto := TaskStatusViewDTO{
		Status:    ToTaskStatusDTO(view.Entity),
		Derived:   view.Derived,
		RingColor: view.RingColor,
	}
	if view.Entity.Task.ID != 0 {
		task := ToTaskDTO(view.Entity.Task)
		dto.Task = &task
	}
	return dto
}
