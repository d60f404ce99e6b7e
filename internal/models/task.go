package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskType string

const (
	TaskTypeOneOff TaskType = "one_off"
	TaskTypeHabit  TaskType = "habit"
)

type RecurrencePattern string

const (
	RecurrenceDaily  RecurrencePattern = "daily"
	RecurrenceWeekly RecurrencePattern = "weekly"
	RecurrenceCustom RecurrencePattern = "custom"
)

// Task is one concrete occurrence of work. Habits are materialized as
// multiple Task rows up front, one per occurrence, so each occurrence is
// independently completable per participant.
type Task struct {
	ID          uint64            `gorm:"primarykey" json:"id"`
	Title       string            `gorm:"not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Type        TaskType          `gorm:"type:varchar(20);not null;default:'one_off'" json:"type"`
	Recurrence  RecurrencePattern `gorm:"type:varchar(20)" json:"recurrence,omitempty"`
	DueDate     time.Time         `gorm:"not null;index" json:"due_date"`
	Difficulty  int               `gorm:"not null;default:3" json:"difficulty"`
	CreatorID   uint64            `gorm:"not null;index" json:"creator_id"`
	ProjectID   uint64            `gorm:"not null;index" json:"project_id"`
	SeriesID    *uint64           `gorm:"index" json:"series_id,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	DeletedAt   gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	Creator  User               `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Project  Project            `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Statuses []TaskStatusEntity `gorm:"foreignKey:TaskID" json:"statuses,omitempty"`
}
