package services

import (
	"encoding/json"
	"fmt"

	"github.com/momentum-app/momentum-api/internal/cache"
	"github.com/momentum-app/momentum-api/internal/models"
	"github.com/momentum-app/momentum-api/internal/realtime"
	"github.com/momentum-app/momentum-api/internal/repository"
)

// inboxCachePrefix must match the key prefix the realtime dispatcher patches
// for notification change events.
const inboxCachePrefix = "notifications:"

// NotificationService handles the notification inbox. Reads go through the
// user's session query cache where possible: the realtime dispatcher patches
// incoming rows in and marks entries stale, and the refetch here reconciles.
type NotificationService struct {
	notifRepo repository.NotificationRepository
	caches    *realtime.SessionCaches
}

// NewNotificationService creates a new NotificationService. caches may be nil
// to serve every read straight from the repository.
func NewNotificationService(notifRepo repository.NotificationRepository, caches *realtime.SessionCaches) *NotificationService {
	return &NotificationService{notifRepo: notifRepo, caches: caches}
}

// List returns a page of the user's notifications, newest first, plus the
// total and unread counts for the inbox badge. When the whole inbox fits in
// the first page the rows are cached in the session query cache, so a fresh
// hit answers without touching storage and a stale one falls through to this
// refetch.
func (s *NotificationService) List(userID uint64, page, pageSize int) ([]models.Notification, int64, int64, error) {
	qc := s.caches.For(userID)
	key := inboxCacheKey(userID, pageSize)

	if qc != nil && page == 1 {
		if items, fresh, ok := qc.Get(key); ok && fresh {
			if rows, derr := decodeNotifications(items); derr == nil {
				total, unread := inboxCounts(rows)
				return rows, total, unread, nil
			}
		}
	}

	rows, total, err := s.notifRepo.ListForUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := s.notifRepo.CountUnread(userID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	// Only a fully-covering first page is cached: that way both counts can
	// be recomputed from the cached rows alone.
	if qc != nil && page == 1 && total <= int64(pageSize) {
		if items, eerr := encodeNotifications(rows); eerr == nil {
			qc.Set(key, items)
		}
	}

	return rows, total, unread, nil
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(id, userID uint64) error {
	if err := s.notifRepo.MarkRead(id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	s.invalidateInbox(userID)
	return nil
}

// MarkAllRead marks the whole inbox read.
func (s *NotificationService) MarkAllRead(userID uint64) error {
	if err := s.notifRepo.MarkAllRead(userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	s.invalidateInbox(userID)
	return nil
}

// invalidateInbox is the local-mutation writer's half of the convergence
// contract: read flags change without a realtime event, so the cached rows
// are marked stale here.
func (s *NotificationService) invalidateInbox(userID uint64) {
	if qc := s.caches.For(userID); qc != nil {
		qc.Invalidate(inboxCachePrefix)
	}
}

func inboxCacheKey(userID uint64, pageSize int) string {
	return fmt.Sprintf("%suser:%d:size:%d", inboxCachePrefix, userID, pageSize)
}

func inboxCounts(rows []models.Notification) (total, unread int64) {
	total = int64(len(rows))
	for _, n := range rows {
		if !n.IsRead {
			unread++
		}
	}
	return total, unread
}

func encodeNotifications(rows []models.Notification) ([]cache.Item, error) {
	items := make([]cache.Item, len(rows))
	for i, n := range rows {
		data, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		items[i] = cache.Item{ID: n.ID, Data: data}
	}
	return items, nil
}

func decodeNotifications(items []cache.Item) ([]models.Notification, error) {
	rows := make([]models.Notification, len(items))
	for i, it := range items {
		if err := json.Unmarshal(it.Data, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}
