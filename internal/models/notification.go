package models

import "time"

type NotificationType string

const (
	NotificationTaskCreated    NotificationType = "task_created"
	NotificationTaskCompleted  NotificationType = "task_completed"
	NotificationTaskRecovered  NotificationType = "task_recovered"
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationFriendAccepted NotificationType = "friend_accepted"
)

type Notification struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	ActorID   *uint64          `json:"actor_id,omitempty"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Message   string           `gorm:"type:varchar(500);not null" json:"message"`
	TaskID    *uint64          `json:"task_id,omitempty"`
	ProjectID *uint64          `json:"project_id,omitempty"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	EmailSent bool             `gorm:"not null;default:false" json:"email_sent"`
	CreatedAt time.Time        `json:"created_at"`

	// Relations
	User  User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}
