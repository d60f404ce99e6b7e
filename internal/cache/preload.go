package cache

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/momentum-app/momentum-api/internal/models"
)

// UserFetcher loads users from storage. Injected so the cache stays free of
// repository imports.
type UserFetcher interface {
	FindByID(id uint64) (*models.User, error)
	FindByIDs(ids []uint64) ([]models.User, error)
}

// UserPreload memoizes id→user lookups used to enrich realtime payloads that
// arrive carrying only a foreign key. Concurrent lookups of the same id share
// one in-flight fetch. Entries live for the session; the whole cache is
// cleared on logout.
type UserPreload struct {
	fetcher UserFetcher

	mu    sync.RWMutex
	users map[uint64]models.User
	group singleflight.Group
}

func NewUserPreload(fetcher UserFetcher) *UserPreload {
	return &UserPreload{
		fetcher: fetcher,
		users:   make(map[uint64]models.User),
	}
}

// Get returns the user for id, fetching and memoizing on miss.
func (p *UserPreload) Get(id uint64) (models.User, error) {
	p.mu.RLock()
	u, ok := p.users[id]
	p.mu.RUnlock()
	if ok {
		return u, nil
	}

	v, err, _ := p.group.Do(strconv.FormatUint(id, 10), func() (interface{}, error) {
		// Re-check under the flight: another caller may have stored it.
		p.mu.RLock()
		cached, ok := p.users[id]
		p.mu.RUnlock()
		if ok {
			return cached, nil
		}

		fetched, err := p.fetcher.FindByID(id)
		if err != nil {
			return models.User{}, err
		}

		p.mu.Lock()
		p.users[id] = *fetched
		p.mu.Unlock()
		return *fetched, nil
	})
	if err != nil {
		return models.User{}, err
	}
	return v.(models.User), nil
}

// Preload bulk-loads a set of users (typically a project's participant set)
// in one query, skipping ids already cached.
func (p *UserPreload) Preload(ids []uint64) error {
	p.mu.RLock()
	missing := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := p.users[id]; !ok {
			missing = append(missing, id)
		}
	}
	p.mu.RUnlock()

	if len(missing) == 0 {
		return nil
	}

	users, err := p.fetcher.FindByIDs(missing)
	if err != nil {
		return err
	}

	p.mu.Lock()
	for _, u := range users {
		p.users[u.ID] = u
	}
	p.mu.Unlock()
	return nil
}

// Peek returns the cached user without triggering a fetch.
func (p *UserPreload) Peek(id uint64) (models.User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[id]
	return u, ok
}

// Clear drops every entry. Called on logout.
func (p *UserPreload) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = make(map[uint64]models.User)
}

// Len reports the number of cached users.
func (p *UserPreload) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.users)
}
