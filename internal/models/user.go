package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Handle       string         `gorm:"type:varchar(30);uniqueIndex;not null" json:"handle"`
	DisplayName  string         `gorm:"type:varchar(100);not null" json:"display_name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	AvatarURL    string         `gorm:"type:varchar(500)" json:"avatar_url"`
	Timezone     string         `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Stats          *UserStats           `gorm:"foreignKey:UserID" json:"stats,omitempty"`
	CreatedTasks   []Task               `gorm:"foreignKey:CreatorID" json:"-"`
	Participations []ProjectParticipant `gorm:"foreignKey:UserID" json:"-"`
}

// UserStats is the aggregated scoring snapshot attached to a user. It is
// maintained inside the completion transaction and read-only everywhere else.
type UserStats struct {
	UserID              uint64     `gorm:"primarykey" json:"user_id"`
	TotalScore          int64      `gorm:"not null;default:0" json:"total_score"`
	TotalCompletedTasks int64      `gorm:"not null;default:0" json:"total_completed_tasks"`
	CurrentStreak       int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak       int        `gorm:"not null;default:0" json:"longest_streak"`
	LastCompletedAt     *time.Time `json:"last_completed_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
