package repository

import (
	"gorm.io/gorm"

	"github.com/momentum-app/momentum-api/internal/models"
)

// GormFriendshipRepository is a GORM implementation of FriendshipRepository
type GormFriendshipRepository struct {
	db *gorm.DB
}

// NewFriendshipRepository creates a new FriendshipRepository
func NewFriendshipRepository(db *gorm.DB) FriendshipRepository {
	return &GormFriendshipRepository{db: db}
}

// Create creates a friendship request row
func (r *GormFriendshipRepository) Create(f *models.Friendship) error {
	return r.db.Create(f).Error
}

// FindByID finds a friendship row by ID
func (r *GormFriendshipRepository) FindByID(id uint64) (*models.Friendship, error) {
	var f models.Friendship
	if err := r.db.First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// FindBetween finds the row linking two users. Storage is asymmetric, so
// both column orders are checked.
func (r *GormFriendshipRepository) FindBetween(userID, friendID uint64) (*models.Friendship, error) {
	var f models.Friendship
	err := r.db.
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			userID, friendID, friendID, userID).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Update persists changes to a friendship row
func (r *GormFriendshipRepository) Update(f *models.Friendship) error {
	return r.db.Save(f).Error
}

// Delete removes a friendship row
func (r *GormFriendshipRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Friendship{}, id).Error
}

// ListForUser lists rows where the user appears on either side
func (r *GormFriendshipRepository) ListForUser(userID uint64, status *models.FriendshipStatus) ([]models.Friendship, error) {
	query := r.db.
		Preload("User").
		Preload("Friend").
		Where("user_id = ? OR friend_id = ?", userID, userID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var rows []models.Friendship
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAcceptedFriendIDs lists ids of users on the other side of accepted rows
func (r *GormFriendshipRepository) ListAcceptedFriendIDs(userID uint64) ([]uint64, error) {
	accepted := models.FriendshipAccepted
	rows, err := r.ListForUser(userID, &accepted)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.OtherUserID(userID))
	}
	return ids, nil
}
