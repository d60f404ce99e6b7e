package realtime

import (
	"sync"

	"github.com/momentum-app/momentum-api/internal/cache"
)

// SessionCaches owns the per-user read model: one query cache fed by one
// dispatcher per signed-in user. A session is created lazily on the user's
// first cached read and dropped on logout, so users with no active reads
// cost nothing.
type SessionCaches struct {
	hub      *Hub
	notifier Notifier

	mu       sync.Mutex
	sessions map[uint64]*userSession
}

type userSession struct {
	cache      *cache.QueryCache
	dispatcher *Dispatcher
}

// NewSessionCaches creates a SessionCaches over hub. notifier may be nil.
func NewSessionCaches(hub *Hub, notifier Notifier) *SessionCaches {
	return &SessionCaches{
		hub:      hub,
		notifier: notifier,
		sessions: make(map[uint64]*userSession),
	}
}

// For returns the user's query cache, creating the session and opening its
// dispatcher on first use. Nil receiver and userID 0 both yield nil: callers
// wired without a realtime layer fall through to direct reads.
func (s *SessionCaches) For(userID uint64) *cache.QueryCache {
	if s == nil || userID == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess.cache
	}

	qc := cache.NewQueryCache()
	d := NewDispatcher(s.hub, qc, s.notifier, userID)
	d.Open()
	s.sessions[userID] = &userSession{cache: qc, dispatcher: d}
	return qc
}

// Drop tears one user's session down. Called on logout.
func (s *SessionCaches) Drop(userID uint64) {
	if s == nil {
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if ok {
		sess.dispatcher.Close()
		sess.cache.Clear()
	}
}

// Len reports the number of live sessions.
func (s *SessionCaches) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close drops every session.
func (s *SessionCaches) Close() {
	if s == nil {
		return
	}

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[uint64]*userSession)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.dispatcher.Close()
		sess.cache.Clear()
	}
}
