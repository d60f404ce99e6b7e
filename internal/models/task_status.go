package models

import "time"

type LifecycleStatus string

const (
	StatusActive    LifecycleStatus = "active"
	StatusUpcoming  LifecycleStatus = "upcoming"
	StatusCompleted LifecycleStatus = "completed"
	StatusArchived  LifecycleStatus = "archived"
	StatusRecovered LifecycleStatus = "recovered"
)

type RingColor string

const (
	RingGreen  RingColor = "green"
	RingYellow RingColor = "yellow"
	RingRed    RingColor = "red"
	RingNone   RingColor = "none"
)

type TimingMarker string

const (
	TimingEarly  TimingMarker = "early"
	TimingOnTime TimingMarker = "on_time"
	TimingLate   TimingMarker = "late"
)

// TaskStatusEntity is the per-(task, user) projection of a task: one row per
// qualifying participant. The stored Status and RingColor are caches; the
// status package derives the authoritative values from the raw fields.
type TaskStatusEntity struct {
	ID               uint64          `gorm:"primarykey" json:"id"`
	TaskID           uint64          `gorm:"not null;uniqueIndex:idx_task_status_task_user" json:"task_id"`
	UserID           uint64          `gorm:"not null;uniqueIndex:idx_task_status_task_user" json:"user_id"`
	Status           LifecycleStatus `gorm:"type:varchar(20);not null;default:'upcoming'" json:"status"`
	EffectiveDueDate time.Time       `gorm:"not null" json:"effective_due_date"`
	ArchivedAt       *time.Time      `json:"archived_at"`
	RecoveredAt      *time.Time      `json:"recovered_at"`
	RingColor        RingColor       `gorm:"type:varchar(10);not null;default:'none'" json:"ring_color"`
	Timing           TimingMarker    `gorm:"type:varchar(10)" json:"timing,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
