package dto

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
)

// NotificationDTO represents an inbox entry in API responses
type NotificationDTO struct {
	ID        uint64                  `json:"id"`
	Type      models.NotificationType `json:"type"`
	Message   string                  `json:"message"`
	ActorID   *uint64                 `json:"actor_id,omitempty"`
	TaskID    *uint64                 `json:"task_id,omitempty"`
	ProjectID *uint64                 `json:"project_id,omitempty"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// NotificationListResponse represents a page of the inbox plus the unread
// badge count
type NotificationListResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalCount    int64             `json:"total_count"`
	UnreadCount   int64             `json:"unread_count"`
}

// ToNotificationDTO converts a Notification model to NotificationDTO
func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type,
		Message:   n.Message,
		ActorID:   n.ActorID,
		TaskID:    n.TaskID,
		ProjectID: n.ProjectID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// ToNotificationListResponse converts a page of notifications to its response
// shape
func ToNotificationListResponse(rows []models.Notification, page, pageSize int, total, unread int64) NotificationListResponse {
	items := make([]NotificationDTO, len(rows))
	for i, n := range rows {
		items[i] = ToNotificationDTO(n)
	}

	return NotificationListResponse{
		Notifications: items,
		Page:          page,
		PageSize:      pageSize,
		TotalCount:    total,
		UnreadCount:   unread,
	}
}
