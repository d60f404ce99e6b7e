package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/realtime"
	"github.com/momentum-app/momentum-api/internal/repository"
	"github.com/momentum-app/momentum-api/internal/utils"
)

var (
	ErrProjectNameRequired   = errors.New("project name is required")
	ErrInvalidInviteCode     = errors.New("invalid invite code")
	ErrAlreadyParticipant    = errors.New("user is already a participant")
	ErrNotProjectOwner       = errors.New("only the project owner can perform this action")
	ErrCannotRemoveOwner     = errors.New("the project owner cannot be removed")
	ErrRemovalNotPermitted   = errors.New("only owners and managers can remove other participants")
	ErrFailedToCreateProject = errors.New("failed to create project")
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo repository.ProjectRepository
	bus         *EventBus

	now func() time.Time
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo repository.ProjectRepository, bus *EventBus) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		bus:         bus,
		now:         time.Now,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name     string
	IsPublic bool
	OwnerID  uint64
}

// CreateProject creates a project with the creator as its owner participant.
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrFailedToCreateProject
	}

	project := &models.Project{
		Name:       name,
		OwnerID:    input.OwnerID,
		InviteCode: inviteCode,
		IsPublic:   input.IsPublic,
	}
	owner := &models.ProjectParticipant{
		UserID: input.OwnerID,
		Role:   models.RoleOwner,
	}

	if err := s.projectRepo.Create(project, owner); err != nil {
		if errors.Is(err, repository.ErrCreateProject) || errors.Is(err, repository.ErrCreateOwnerParticipant) {
			return nil, ErrFailedToCreateProject
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.bus.PublishToUsers(ctx, realtime.SubProjects, []uint64{input.OwnerID}, realtime.TableProjects, realtime.EventInsert, project, nil)

	return project, nil
}

// GetProject returns a project with its participants. Private projects are
// visible to participants only.
func (s *ProjectService) GetProject(projectID, actorID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Owner", "Participants", "Participants.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if !project.IsPublic {
		participants, err := s.projectRepo.ListActiveParticipants(projectID)
		if err != nil {
			return nil, fmt.Errorf("failed to list project participants: %w", err)
		}
		if err := ensureParticipant(participants, actorID); err != nil {
			return nil, err
		}
	}

	return project, nil
}

// ListProjects lists the projects the user actively participates in.
func (s *ProjectService) ListProjects(userID uint64) ([]models.Project, error) {
	projects, err := s.projectRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// JoinByInviteCode adds the user to the project behind an invite code. A
// previously removed participant rejoins by having their row revived.
func (s *ProjectService) JoinByInviteCode(ctx context.Context, code string, userID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByInviteCode(strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if existing, err := s.projectRepo.FindParticipant(project.ID, userID); err == nil && existing.Active() {
		return nil, ErrAlreadyParticipant
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}

	participant := &models.ProjectParticipant{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      models.RoleParticipant,
	}
	if err := s.projectRepo.AddParticipant(participant); err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	s.publishParticipantChange(ctx, project.ID, realtime.EventInsert, participant)

	return project, nil
}

// RemoveParticipant soft-removes a participant. Users may always remove
// themselves; removing someone else requires owner or manager role, and the
// owner can never be removed.
func (s *ProjectService) RemoveParticipant(ctx context.Context, projectID, actorID, targetID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if targetID == project.OwnerID {
		return ErrCannotRemoveOwner
	}

	participants, err := s.projectRepo.ListActiveParticipants(projectID)
	if err != nil {
		return fmt.Errorf("failed to list project participants: %w", err)
	}
	if err := ensureParticipant(participants, targetID); err != nil {
		return err
	}

	if actorID != targetID {
		actorRole, ok := roleOf(participants, actorID)
		if !ok {
			return ErrNotProjectParticipant
		}
		if actorRole != models.RoleOwner && actorRole != models.RoleManager {
			return ErrRemovalNotPermitted
		}
	}

	target, err := s.projectRepo.FindParticipant(projectID, targetID)
	if err != nil {
		return fmt.Errorf("failed to find participant: %w", err)
	}

	if err := s.projectRepo.RemoveParticipant(projectID, targetID, s.now()); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	s.publishParticipantChange(ctx, projectID, realtime.EventDelete, target)

	return nil
}

// DeleteProject deletes a project and all its data. Owner only.
func (s *ProjectService) DeleteProject(ctx context.Context, projectID, actorID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	if project.OwnerID != actorID {
		return ErrNotProjectOwner
	}

	participants, err := s.projectRepo.ListActiveParticipants(projectID)
	if err != nil {
		return fmt.Errorf("failed to list project participants: %w", err)
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.bus.PublishToUsers(ctx, realtime.SubProjects, participantUserIDs(participants), realtime.TableProjects, realtime.EventDelete, nil, project)

	return nil
}

// publishParticipantChange fans a membership change out to every remaining
// participant's projects stream and to the project detail topic.
func (s *ProjectService) publishParticipantChange(ctx context.Context, projectID uint64, typ realtime.EventType, p *models.ProjectParticipant) {
	participants, err := s.projectRepo.ListActiveParticipants(projectID)
	if err != nil {
		return
	}

	var newRow, oldRow any
	if typ == realtime.EventDelete {
		oldRow = p
	} else {
		newRow = p
	}

	s.bus.PublishToUsers(ctx, realtime.SubProjects, participantUserIDs(participants), realtime.TableParticipants, typ, newRow, oldRow)
	s.bus.PublishToProject(ctx, projectID, realtime.TableParticipants, typ, newRow, oldRow)
}

func roleOf(participants []models.ProjectParticipant, userID uint64) (models.ParticipantRole, bool) {
	for _, p := range participants {
		if p.UserID == userID {
			return p.Role, true
		}
	}
	return "", false
}
