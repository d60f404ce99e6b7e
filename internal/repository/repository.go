package repository

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// CreateBatch creates tasks and their per-participant status rows in a
	// single transaction; either the whole batch persists or none of it.
	CreateBatch(tasks []models.Task, statuses func(taskIndex int, taskID uint64) []models.TaskStatusEntity) ([]models.Task, error)

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete deletes a task, cascading to its status rows and completion logs
	Delete(id uint64) error

	// FindStatus finds the status row for one (task, user) pair
	FindStatus(taskID, userID uint64) (*models.TaskStatusEntity, error)

	// CreateStatus creates a status row
	CreateStatus(ts *models.TaskStatusEntity) error

	// SaveStatus persists changes to a status row
	SaveStatus(ts *models.TaskStatusEntity) error

	// ListStatusesByTask lists all per-user status rows of a task
	ListStatusesByTask(taskID uint64) ([]models.TaskStatusEntity, error)

	// ListStatusesForUser lists a user's status rows joined with their tasks,
	// windowed by effective due date
	ListStatusesForUser(userID uint64, from, to *time.Time) ([]models.TaskStatusEntity, error)

	// FindCompletion finds the completion log for one (task, user) pair
	FindCompletion(taskID, userID uint64) (*models.CompletionLog, error)

	// ListCompletionsByTask lists all completion logs of a task
	ListCompletionsByTask(taskID uint64) ([]models.CompletionLog, error)

	// RecordCompletion persists the completion log, the flipped status row and
	// the updated stats snapshot atomically.
	RecordCompletion(log *models.CompletionLog, ts *models.TaskStatusEntity, stats *models.UserStats) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectIDs    []uint64
	Type          *models.TaskType
	CreatorID     *uint64
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project and its owner participant atomically
	Create(project *models.Project, owner *models.ProjectParticipant) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Project, error)

	// FindByInviteCode finds a project by invite code
	FindByInviteCode(code string) (*models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete deletes a project and all related data
	Delete(id uint64) error

	// AddParticipant adds a participant, reviving a soft-removed row if present
	AddParticipant(p *models.ProjectParticipant) error

	// RemoveParticipant soft-removes a participant by setting RemovedAt
	RemoveParticipant(projectID, userID uint64, at time.Time) error

	// FindParticipant finds a participant row regardless of removal state
	FindParticipant(projectID, userID uint64) (*models.ProjectParticipant, error)

	// ListActiveParticipants lists participants with no RemovedAt
	ListActiveParticipants(projectID uint64) ([]models.ProjectParticipant, error)

	// ListForUser lists projects where the user is an active participant
	ListForUser(userID uint64) ([]models.Project, error)

	// CountActiveParticipants counts participants with no RemovedAt
	CountActiveParticipants(projectID uint64) (int64, error)

	// AddTaskCount adjusts the denormalized task counter
	AddTaskCount(projectID uint64, delta int64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateWithStats creates a user and their zeroed stats row atomically
	CreateWithStats(user *models.User, stats *models.UserStats) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByIDs finds users by IDs (bulk preload)
	FindByIDs(ids []uint64) ([]models.User, error)

	// FindByHandle finds a user by handle
	FindByHandle(handle string) (*models.User, error)

	// GetStats fetches a user's stats snapshot
	GetStats(userID uint64) (*models.UserStats, error)

	// ListStatsByUserIDs fetches stats for several users, ordered by score
	ListStatsByUserIDs(userIDs []uint64) ([]models.UserStats, error)
}

// FriendshipRepository defines the interface for friendship data access
type FriendshipRepository interface {
	// Create creates a friendship request row
	Create(f *models.Friendship) error

	// FindByID finds a friendship row by ID
	FindByID(id uint64) (*models.Friendship, error)

	// FindBetween finds the row linking two users, checking both column orders
	FindBetween(userID, friendID uint64) (*models.Friendship, error)

	// Update persists changes to a friendship row
	Update(f *models.Friendship) error

	// Delete removes a friendship row
	Delete(id uint64) error

	// ListForUser lists rows where the user appears on either side, optionally
	// filtered by status
	ListForUser(userID uint64, status *models.FriendshipStatus) ([]models.Friendship, error)

	// ListAcceptedFriendIDs lists the ids of users on the other side of the
	// user's accepted rows
	ListAcceptedFriendIDs(userID uint64) ([]uint64, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create creates a notification
	Create(n *models.Notification) error

	// ListForUser lists a user's notifications, newest first
	ListForUser(userID uint64, page, pageSize int) ([]models.Notification, int64, error)

	// MarkRead marks one notification read for its owner
	MarkRead(id, userID uint64) error

	// MarkAllRead marks all of a user's notifications read
	MarkAllRead(userID uint64) error

	// CountUnread counts a user's unread notifications
	CountUnread(userID uint64) (int64, error)
}
