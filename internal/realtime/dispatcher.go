package realtime

import (
	"fmt"
	"sync"

	"github.com/momentum-app/momentum-api/internal/cache"
)

// Notifier receives notification-insert side effects (OS/browser push in the
// original client; any sink here).
type Notifier interface {
	Notify(ev ChangeEvent)
}

// Dispatcher is the single top-level consumer of a session's change streams.
// It opens one subscription per table and, for each incoming event, patches
// every matching query-cache entry immediately (so readers see the change
// with no round trip) and marks the same keys stale so the next natural
// refetch reconciles any divergence between the optimistic patch and server
// truth.
type Dispatcher struct {
	hub      *Hub
	cache    *cache.QueryCache
	notifier Notifier
	userID   uint64

	mu     sync.Mutex
	unsubs []Unsubscribe
	closed bool
}

// NewDispatcher wires a dispatcher for one session. userID 0 means
// "notifications intentionally disabled": the notification stream is simply
// not opened, which is not an error.
func NewDispatcher(hub *Hub, qc *cache.QueryCache, notifier Notifier, userID uint64) *Dispatcher {
	return &Dispatcher{hub: hub, cache: qc, notifier: notifier, userID: userID}
}

// Open subscribes to every table stream for the session. Call once.
func (d *Dispatcher) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.unsubs) > 0 {
		return
	}

	d.unsubs = append(d.unsubs,
		d.hub.Subscribe(SubTasks, d.userID, d.handleTask),
		d.hub.Subscribe(SubTasks, d.userID, d.handleTaskStatus),
		d.hub.Subscribe(SubTasks, d.userID, d.handleCompletion),
		d.hub.Subscribe(SubProjects, d.userID, d.handleParticipant),
	)

	if d.userID != 0 {
		d.unsubs = append(d.unsubs,
			d.hub.Subscribe(SubNotifications, d.userID, d.handleNotification),
		)
	}
}

// Close tears the subscriptions down exactly once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, unsub := range d.unsubs {
		unsub()
	}
	d.unsubs = nil
}

func (d *Dispatcher) handleTask(ev ChangeEvent) {
	if ev.Table != TableTasks {
		return
	}
	d.apply(ev, "tasks:")
}

func (d *Dispatcher) handleTaskStatus(ev ChangeEvent) {
	if ev.Table != TableTaskStatuses {
		return
	}
	d.apply(ev, "task_statuses:")
}

func (d *Dispatcher) handleCompletion(ev ChangeEvent) {
	if ev.Table != TableCompletions {
		return
	}
	d.apply(ev, "completions:")
}

func (d *Dispatcher) handleParticipant(ev ChangeEvent) {
	if ev.Table != TableParticipants {
		return
	}
	ref, ok := ev.Ref()
	if !ok {
		return
	}
	d.applyRef(ev, fmt.Sprintf("participants:project:%d", ref.ProjectID), ref)
}

func (d *Dispatcher) handleNotification(ev ChangeEvent) {
	if ev.Table != TableNotifications {
		return
	}
	d.apply(ev, "notifications:")

	if ev.Type == EventInsert && d.notifier != nil {
		d.notifier.Notify(ev)
	}
}

func (d *Dispatcher) apply(ev ChangeEvent, prefix string) {
	ref, ok := ev.Ref()
	if !ok {
		return
	}
	d.applyRef(ev, prefix, ref)
}

func (d *Dispatcher) applyRef(ev ChangeEvent, prefix string, ref RowRef) {
	item := cache.Item{ID: ref.ID, Data: ev.Payload()}

	switch ev.Type {
	case EventInsert:
		d.cache.PatchInsert(prefix, item)
	case EventUpdate:
		d.cache.PatchUpdate(prefix, item)
	case EventDelete:
		d.cache.PatchDelete(prefix, ref.ID)
	}

	// Background reconciliation: the next read under this prefix refetches.
	d.cache.Invalidate(prefix)
}
