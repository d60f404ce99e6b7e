package models

import "time"

// CompletionLog is the append-only record of one user completing one task
// occurrence. Rows are never updated or deleted except by the task deletion
// cascade; the presence of a log is the authoritative completion signal and
// outranks TaskStatusEntity.Status.
type CompletionLog struct {
	ID               uint64       `gorm:"primarykey" json:"id"`
	TaskID           uint64       `gorm:"not null;uniqueIndex:idx_completion_task_user" json:"task_id"`
	UserID           uint64       `gorm:"not null;uniqueIndex:idx_completion_task_user" json:"user_id"`
	CompletedAt      time.Time    `gorm:"not null" json:"completed_at"`
	DifficultyRating int          `gorm:"not null;default:3" json:"difficulty_rating"`
	XPEarned         int64        `gorm:"not null" json:"xp_earned"`
	PenaltyApplied   bool         `gorm:"not null;default:false" json:"penalty_applied"`
	Timing           TimingMarker `gorm:"type:varchar(10);not null" json:"timing"`
	CreatedAt        time.Time    `json:"created_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
