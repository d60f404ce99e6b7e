package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	OwnerID    uint64         `gorm:"not null" json:"owner_id"`
	InviteCode string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	IsPublic   bool           `gorm:"not null;default:false" json:"is_public"`
	TaskCount  int64          `gorm:"not null;default:0" json:"task_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner        User                 `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Participants []ProjectParticipant `gorm:"foreignKey:ProjectID" json:"participants,omitempty"`
	Tasks        []Task               `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
}
