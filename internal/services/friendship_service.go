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
)

var (
	ErrFriendshipNotFound     = errors.New("friendship not found")
	ErrFriendshipExists       = errors.New("friendship or pending request already exists")
	ErrCannotBefriendSelf     = errors.New("cannot send a friend request to yourself")
	ErrNotFriendRequestTarget = errors.New("only the request recipient can respond")
	ErrRequestNotPending      = errors.New("friend request is not pending")
)

// FriendshipService handles friendship business logic
type FriendshipService struct {
	friendRepo repository.FriendshipRepository
	userRepo   repository.UserRepository
	notifRepo  repository.NotificationRepository
	bus        *EventBus

	now func() time.Time
}

// NewFriendshipService creates a new FriendshipService
func NewFriendshipService(
	friendRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	bus *EventBus,
) *FriendshipService {
	return &FriendshipService{
		friendRepo: friendRepo,
		userRepo:   userRepo,
		notifRepo:  notifRepo,
		bus:        bus,
		now:        time.Now,
	}
}

// SendRequest creates a pending friendship row addressed at the user behind
// handle. One row represents both directions, so an existing row in either
// column order blocks a duplicate.
func (s *FriendshipService) SendRequest(ctx context.Context, requesterID uint64, handle string) (*models.Friendship, error) {
	target, err := s.userRepo.FindByHandle(strings.ToLower(strings.TrimSpace(handle)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if target.ID == requesterID {
		return nil, ErrCannotBefriendSelf
	}

	if _, err := s.friendRepo.FindBetween(requesterID, target.ID); err == nil {
		return nil, ErrFriendshipExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}

	friendship := &models.Friendship{
		UserID:      requesterID,
		FriendID:    target.ID,
		Status:      models.FriendshipPending,
		IsInitiator: true,
	}
	if err := s.friendRepo.Create(friendship); err != nil {
		return nil, fmt.Errorf("failed to create friendship: %w", err)
	}

	s.notifyFriendEvent(ctx, target.ID, requesterID, models.NotificationFriendRequest, "You have a new friend request")
	s.bus.PublishToUsers(ctx, realtime.SubFriendRequests, []uint64{requesterID, target.ID}, realtime.TableFriendships, realtime.EventInsert, friendship, nil)

	return friendship, nil
}

// RespondToRequest accepts or declines a pending request. Only the recipient
// may respond; declining deletes the row so a fresh request can follow.
func (s *FriendshipService) RespondToRequest(ctx context.Context, friendshipID, responderID uint64, accept bool) (*models.Friendship, error) {
	friendship, err := s.friendRepo.FindByID(friendshipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFriendshipNotFound
		}
		return nil, fmt.Errorf("failed to find friendship: %w", err)
	}

	if friendship.Status != models.FriendshipPending {
		return nil, ErrRequestNotPending
	}
	if friendship.FriendID != responderID {
		return nil, ErrNotFriendRequestTarget
	}

	if !accept {
		if err := s.friendRepo.Delete(friendshipID); err != nil {
			return nil, fmt.Errorf("failed to delete friendship: %w", err)
		}
		s.bus.PublishToUsers(ctx, realtime.SubFriendRequests, []uint64{friendship.UserID, friendship.FriendID}, realtime.TableFriendships, realtime.EventDelete, nil, friendship)
		return nil, nil
	}

	now := s.now()
	friendship.Status = models.FriendshipAccepted
	friendship.RespondedAt = &now
	if err := s.friendRepo.Update(friendship); err != nil {
		return nil, fmt.Errorf("failed to update friendship: %w", err)
	}

	s.notifyFriendEvent(ctx, friendship.UserID, responderID, models.NotificationFriendAccepted, "Your friend request was accepted")
	s.bus.PublishToUsers(ctx, realtime.SubFriendRequests, []uint64{friendship.UserID, friendship.FriendID}, realtime.TableFriendships, realtime.EventUpdate, friendship, nil)

	return friendship, nil
}

// RemoveFriend deletes an accepted friendship from either side.
func (s *FriendshipService) RemoveFriend(ctx context.Context, userID, friendUserID uint64) error {
	friendship, err := s.friendRepo.FindBetween(userID, friendUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFriendshipNotFound
		}
		return fmt.Errorf("failed to find friendship: %w", err)
	}

	if err := s.friendRepo.Delete(friendship.ID); err != nil {
		return fmt.Errorf("failed to delete friendship: %w", err)
	}

	s.bus.PublishToUsers(ctx, realtime.SubFriendRequests, []uint64{friendship.UserID, friendship.FriendID}, realtime.TableFriendships, realtime.EventDelete, nil, friendship)

	return nil
}

// ListFriendships lists the user's rows, optionally filtered by status.
func (s *FriendshipService) ListFriendships(userID uint64, status *models.FriendshipStatus) ([]models.Friendship, error) {
	rows, err := s.friendRepo.ListForUser(userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	return rows, nil
}

func (s *FriendshipService) notifyFriendEvent(ctx context.Context, recipientID, actorID uint64, typ models.NotificationType, message string) {
	n := &models.Notification{
		UserID:  recipientID,
		ActorID: &actorID,
		Type:    typ,
		Message: message,
	}
	if err := s.notifRepo.Create(n); err != nil {
		return
	}
	s.bus.PublishToUsers(ctx, realtime.SubNotifications, []uint64{recipientID}, realtime.TableNotifications, realtime.EventInsert, n, nil)
}
