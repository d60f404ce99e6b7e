package services

import (
	"fmt"
	"sort"

	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/repository"
)

// LeaderboardEntry is one ranked row: the user, their stats and their rank
// among the viewer's friends (1-based).
type LeaderboardEntry struct {
	Rank  int              `json:"rank"`
	User  models.User      `json:"user"`
	Stats models.UserStats `json:"stats"`
}

// LeaderboardService ranks a user against their accepted friends by total
// score.
type LeaderboardService struct {
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
}

// NewLeaderboardService creates a new LeaderboardService
func NewLeaderboardService(friendRepo repository.FriendshipRepository, userRepo repository.UserRepository) *LeaderboardService {
	return &LeaderboardService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
	}
}

// FriendsLeaderboard returns the viewer plus their accepted friends, ordered
// by total score descending. Ties share the order the store returns; ranks
// are still strictly sequential.
func (s *LeaderboardService) FriendsLeaderboard(viewerID uint64) ([]LeaderboardEntry, error) {
	friendIDs, err := s.friendRepo.ListAcceptedFriendIDs(viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	ids := append([]uint64{viewerID}, friendIDs...)

	stats, err := s.userRepo.ListStatsByUserIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	users, err := s.userRepo.FindByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	byID := make(map[uint64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalScore > stats[j].TotalScore
	})

	entries := make([]LeaderboardEntry, 0, len(stats))
	for i, st := range stats {
		user, ok := byID[st.UserID]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Rank:  i + 1,
			User:  user,
			Stats: st,
		})
	}
	return entries, nil
}
