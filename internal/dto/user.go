package dto

import (
	"time"

	"github.com/momentum-app/momentum-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64        `json:"id"`
	Handle      string        `json:"handle"`
	DisplayName string        `json:"display_name"`
	AvatarURL   string        `json:"avatar_url,omitempty"`
	Timezone    string        `json:"timezone,omitempty"`
	Stats       *UserStatsDTO `json:"stats,omitempty"`
}

// UserStatsDTO represents a user's scoring snapshot in API responses
type UserStatsDTO struct {
	TotalScore          int64      `json:"total_score"`
	TotalCompletedTasks int64      `json:"total_completed_tasks"`
	CurrentStreak       int        `json:"current_streak"`
	LongestStreak       int        `json:"longest_streak"`
	LastCompletedAt     *time.Time `json:"last_completed_at,omitempty"`
}

// FriendshipDTO represents a friendship row from the viewer's perspective
type FriendshipDTO struct {
	ID          uint64                  `json:"id"`
	Status      models.FriendshipStatus `json:"status"`
	Incoming    bool                    `json:"incoming"`
	Friend      *UserDTO                `json:"friend,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	RespondedAt *time.Time              `json:"responded_at,omitempty"`
}

// LeaderboardEntryDTO represents one ranked leaderboard row
type LeaderboardEntryDTO struct {
	Rank  int          `json:"rank"`
	User  UserDTO      `json:"user"`
	Stats UserStatsDTO `json:"stats"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	dto := UserDTO{
		ID:          user.ID,
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Timezone:    user.Timezone,
	}
	if user.Stats != nil {
		stats := ToUserStatsDTO(*user.Stats)
		dto.Stats = &stats
	}
	return dto
}

// ToUserStatsDTO converts a UserStats model to UserStatsDTO
func ToUserStatsDTO(stats models.UserStats) UserStatsDTO {
	return UserStatsDTO{
		TotalScore:          stats.TotalScore,
		TotalCompletedTasks: stats.TotalCompletedTasks,
		CurrentStreak:       stats.CurrentStreak,
		LongestStreak:       stats.LongestStreak,
		LastCompletedAt:     stats.LastCompletedAt,
	}
}

// ToFriendshipDTO converts a Friendship model to the viewer's FriendshipDTO.
// Incoming means the viewer is the recipient of a pending request.
func ToFriendshipDTO(f models.Friendship, viewerID uint64) FriendshipDTO {
	dto := FriendshipDTO{
		ID:          f.ID,
		Status:      f.Status,
		Incoming:    f.FriendID == viewerID,
		CreatedAt:   f.CreatedAt,
		RespondedAt: f.RespondedAt,
	}

	// The "friend" side is whichever preloaded user is not the viewer.
	other := f.User
	if f.UserID == viewerID {
		other = f.Friend
	}
	if other.ID != 0 {
		friend := ToUserDTO(other)
		dto.Friend = &friend
	}

	return dto
}
