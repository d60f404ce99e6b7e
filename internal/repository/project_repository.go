package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/momentum-app/momentum-api/internal/models"
)

var (
	// ErrCreateProject is returned when creating a project fails inside the creation transaction.
	ErrCreateProject = errors.New("project repository: create project failed")
	// ErrCreateOwnerParticipant is returned when creating the owner participant fails inside the creation transaction.
	ErrCreateOwnerParticipant = errors.New("project repository: create owner participant failed")
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a project and its owner participant atomically
func (r *GormProjectRepository) Create(project *models.Project, owner *models.ProjectParticipant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateProject, err)
		}

		owner.ProjectID = project.ID

		if err := tx.Create(owner).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateOwnerParticipant, err)
		}

		return nil
	})
}

// FindByID finds a project by ID with optional preloading
func (r *GormProjectRepository) FindByID(id uint64, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&project, id).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

// FindByInviteCode finds a project by invite code
func (r *GormProjectRepository) FindByInviteCode(code string) (*models.Project, error) {
	var project models.Project
	if err := r.db.Where("invite_code = ?", code).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

// Delete deletes a project, its participants, tasks and dependent rows
func (r *GormProjectRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var taskIDs []uint64
		if err := tx.Model(&models.Task{}).Where("project_id = ?", id).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.TaskStatusEntity{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&models.CompletionLog{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectParticipant{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Project{}, id).Error
	})
}

// AddParticipant adds a participant, reviving a soft-removed row if present
func (r *GormProjectRepository) AddParticipant(p *models.ProjectParticipant) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"removed_at": nil,
				"role":       p.Role,
				"joined_at":  p.JoinedAt,
			}),
		}).
		Create(p).Error
}

// RemoveParticipant soft-removes a participant by setting RemovedAt
func (r *GormProjectRepository) RemoveParticipant(projectID, userID uint64, at time.Time) error {
	return r.db.Model(&models.ProjectParticipant{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("removed_at", at).Error
}

// FindParticipant finds a participant row regardless of removal state
func (r *GormProjectRepository) FindParticipant(projectID, userID uint64) (*models.ProjectParticipant, error) {
	var p models.ProjectParticipant
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveParticipants lists participants with no RemovedAt
func (r *GormProjectRepository) ListActiveParticipants(projectID uint64) ([]models.ProjectParticipant, error) {
	var rows []models.ProjectParticipant
	if err := r.db.Where("project_id = ? AND removed_at IS NULL", projectID).
		Preload("User").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListForUser lists projects where the user is an active participant
func (r *GormProjectRepository) ListForUser(userID uint64) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.
		Joins("JOIN project_participants ON project_participants.project_id = projects.id").
		Where("project_participants.user_id = ? AND project_participants.removed_at IS NULL", userID).
		Order("projects.created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// CountActiveParticipants counts participants with no RemovedAt
func (r *GormProjectRepository) CountActiveParticipants(projectID uint64) (int64, error) {
	var count int64
	err := r.db.Model(&models.ProjectParticipant{}).
		Where("project_id = ? AND removed_at IS NULL", projectID).
		Count(&count).Error
	return count, err
}

// AddTaskCount adjusts the denormalized task counter
func (r *GormProjectRepository) AddTaskCount(projectID uint64, delta int64) error {
	return r.db.Model(&models.Project{}).
		Where("id = ?", projectID).
		UpdateColumn("task_count", gorm.Expr("task_count + ?", delta)).Error
}
