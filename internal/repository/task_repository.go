package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/models"
)

var (
	// ErrCreateTaskBatch is returned when persisting a task batch fails inside the creation transaction.
	ErrCreateTaskBatch = errors.New("task repository: create batch failed")
	// ErrRecordCompletion is returned when persisting a completion fails inside the completion transaction.
	ErrRecordCompletion = errors.New("task repository: record completion failed")
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// CreateBatch creates tasks plus their status rows atomically. The statuses
// callback runs after each task has an ID, so occurrence rows can reference
// the generated key.
func (r *GormTaskRepository) CreateBatch(tasks []models.Task, statuses func(taskIndex int, taskID uint64) []models.TaskStatusEntity) ([]models.Task, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		for i := range tasks {
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return fmt.Errorf("%w: task %d: %v", ErrCreateTaskBatch, i, err)
			}

			rows := statuses(i, tasks[i].ID)
			if len(rows) == 0 {
				continue
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("%w: statuses for task %d: %v", ErrCreateTaskBatch, i, err)
			}
			tasks[i].Statuses = rows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tasks, nil
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	if len(filter.ProjectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	query := r.db.Model(&models.Task{}).Where("tasks.project_id IN ?", filter.ProjectIDs)

	if filter.Type != nil {
		query = query.Where("tasks.type = ?", *filter.Type)
	}
	if filter.CreatorID != nil {
		query = query.Where("tasks.creator_id = ?", *filter.CreatorID)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC")
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Creator").Preload("Statuses").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete deletes a task and cascades to status rows and completion logs
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskStatusEntity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.CompletionLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

// FindStatus finds the status row for one (task, user) pair
func (r *GormTaskRepository) FindStatus(taskID, userID uint64) (*models.TaskStatusEntity, error) {
	var ts models.TaskStatusEntity
	if err := r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&ts).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

// CreateStatus creates a status row
func (r *GormTaskRepository) CreateStatus(ts *models.TaskStatusEntity) error {
	return r.db.Create(ts).Error
}

// SaveStatus persists changes to a status row
func (r *GormTaskRepository) SaveStatus(ts *models.TaskStatusEntity) error {
	return r.db.Save(ts).Error
}

// ListStatusesByTask lists all per-user status rows of a task
func (r *GormTaskRepository) ListStatusesByTask(taskID uint64) ([]models.TaskStatusEntity, error) {
	var rows []models.TaskStatusEntity
	if err := r.db.Where("task_id = ?", taskID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStatusesForUser lists a user's status rows with their tasks preloaded
func (r *GormTaskRepository) ListStatusesForUser(userID uint64, from, to *time.Time) ([]models.TaskStatusEntity, error) {
	query := r.db.Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("effective_due_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("effective_due_date < ?", *to)
	}

	var rows []models.TaskStatusEntity
	if err := query.Preload("Task").Order("effective_due_date ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindCompletion finds the completion log for one (task, user) pair
func (r *GormTaskRepository) FindCompletion(taskID, userID uint64) (*models.CompletionLog, error) {
	var log models.CompletionLog
	if err := r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&log).Error; err != nil {
		return nil, err
	}
	return &log, nil
}

// ListCompletionsByTask lists all completion logs of a task
func (r *GormTaskRepository) ListCompletionsByTask(taskID uint64) ([]models.CompletionLog, error) {
	var logs []models.CompletionLog
	if err := r.db.Where("task_id = ?", taskID).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// RecordCompletion appends the log, flips the status row and saves the stats
// snapshot in one transaction. The log is insert-only; it is never updated.
func (r *GormTaskRepository) RecordCompletion(log *models.CompletionLog, ts *models.TaskStatusEntity, stats *models.UserStats) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(log).Error; err != nil {
			return fmt.Errorf("%w: log: %v", ErrRecordCompletion, err)
		}
		if err := tx.Save(ts).Error; err != nil {
			return fmt.Errorf("%w: status: %v", ErrRecordCompletion, err)
		}
		if err := tx.Save(stats).Error; err != nil {
			return fmt.Errorf("%w: stats: %v", ErrRecordCompletion, err)
		}
		return nil
	})
}
