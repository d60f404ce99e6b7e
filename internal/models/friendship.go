package models

import "time"

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is symmetric in effect but asymmetric in storage: a single row
// with IsInitiator distinguishing the requesting side represents both
// directions. Lookups must check both column orders.
type Friendship struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	UserID      uint64           `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"user_id"`
	FriendID    uint64           `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"friend_id"`
	Status      FriendshipStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	IsInitiator bool             `gorm:"not null;default:true" json:"is_initiator"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`

	// Relations
	User   User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Friend User `gorm:"foreignKey:FriendID" json:"friend,omitempty"`
}

// OtherUserID returns the user on the opposite side of the row from viewer.
func (f Friendship) OtherUserID(viewer uint64) uint64 {
	if f.UserID == viewer {
		return f.FriendID
	}
	return f.UserID
}
