package models

import "time"

type ParticipantRole string

const (
	RoleOwner       ParticipantRole = "owner"
	RoleManager     ParticipantRole = "manager"
	RoleParticipant ParticipantRole = "participant"
)

// ProjectParticipant links a user to a project. Removal is soft: RemovedAt is
// set instead of deleting the row, so past completion history keeps its
// participant context.
type ProjectParticipant struct {
	ProjectID uint64          `gorm:"primarykey" json:"project_id"`
	UserID    uint64          `gorm:"primarykey" json:"user_id"`
	Role      ParticipantRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time       `json:"joined_at"`
	RemovedAt *time.Time      `gorm:"index" json:"removed_at"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Active reports whether the participant is still part of the project.
func (p ProjectParticipant) Active() bool {
	return p.RemovedAt == nil
}
