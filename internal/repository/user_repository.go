package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/models"
)

var (
	// ErrCreateUser is returned when creating a user fails inside the signup transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateUserStats is returned when creating the stats row fails inside the signup transaction.
	ErrCreateUserStats = errors.New("user repository: create user stats failed")
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// CreateWithStats creates a user and their zeroed stats row atomically.
func (r *GormUserRepository) CreateWithStats(user *models.User, stats *models.UserStats) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		stats.UserID = user.ID

		if err := tx.Create(stats).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUserStats, err)
		}

		return nil
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.Preload("Stats").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs finds users by IDs
func (r *GormUserRepository) FindByIDs(ids []uint64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindByHandle finds a user by handle
func (r *GormUserRepository) FindByHandle(handle string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("handle = ?", handle).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetStats fetches a user's stats snapshot
func (r *GormUserRepository) GetStats(userID uint64) (*models.UserStats, error) {
	var stats models.UserStats
	if err := r.db.First(&stats, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListStatsByUserIDs fetches stats for several users ordered by total score
func (r *GormUserRepository) ListStatsByUserIDs(userIDs []uint64) ([]models.UserStats, error) {
	if len(userIDs) == 0 {
		return []models.UserStats{}, nil
	}
	var rows []models.UserStats
	err := r.db.Where("user_id IN ?", userIDs).
		Order("total_score DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
