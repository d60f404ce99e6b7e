package dto

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID           uint64           `json:"id"`
	Name         string           `json:"name"`
	OwnerID      uint64           `json:"owner_id"`
	InviteCode   string           `json:"invite_code,omitempty"`
	IsPublic     bool             `json:"is_public"`
	TaskCount    int64            `json:"task_count"`
	CreatedAt    time.Time        `json:"created_at"`
	Owner        *UserDTO         `json:"owner,omitempty"`
	Participants []ParticipantDTO `json:"participants,omitempty"`
}

// ParticipantDTO represents a project participant in API responses
type ParticipantDTO struct {
	UserID   uint64                 `json:"user_id"`
	Role     models.ParticipantRole `json:"role"`
	JoinedAt time.Time              `json:"joined_at"`
	User     *UserDTO               `json:"user,omitempty"`
}

// ToProjectDTO converts a Project model to ProjectDTO. The invite code is
// included only for participants.
func ToProjectDTO(project models.Project, includeInviteCode bool) ProjectDTO {
	dto := ProjectDTO{
		ID:        project.ID,
		Name:      project.Name,
		OwnerID:   project.OwnerID,
		IsPublic:  project.IsPublic,
		TaskCount: project.TaskCount,
		CreatedAt: project.CreatedAt,
	}
	if includeInviteCode {
		dto.InviteCode = project.InviteCode
	}

	if project.Owner.ID != 0 {
		owner := ToUserDTO(project.Owner)
		dto.Owner = &owner
	}

	for _, p := range project.Participants {
		if !p.Active() {
			continue
		}
		dto.Participants = append(dto.Participants, ToParticipantDTO(p))
	}

	return dto
}

// ToParticipantDTO converts a ProjectParticipant model to ParticipantDTO
func ToParticipantDTO(p models.ProjectParticipant) ParticipantDTO {
	dto := ParticipantDTO{
		UserID:   p.UserID,
		Role:     p.Role,
		JoinedAt: p.JoinedAt,
	}
	if p.User.ID != 0 {
		user := ToUserDTO(p.User)
		dto.User = &user
	}
	return dto
}
