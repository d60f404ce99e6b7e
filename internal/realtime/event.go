// Package realtime carries committed row changes from the mutation path to
// every interested session: services publish ChangeEvents after their
// transactions commit, a broker fans them out across processes, and the hub
// multiplexes broker subscriptions onto per-(category, user) channels with
// reference-counted callbacks.
package realtime

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type Table string

const (
	TableTasks         Table = "tasks"
	TableTaskStatuses  Table = "task_statuses"
	TableCompletions   Table = "completion_logs"
	TableParticipants  Table = "project_participants"
	TableProjects      Table = "projects"
	TableNotifications Table = "notifications"
	TableFriendships   Table = "friendships"
)

// ChangeEvent mirrors a committed row change. Delivery is at-least-once with
// no ordering guarantee, so consumers must be idempotent under replay.
type ChangeEvent struct {
	Table Table           `json:"table"`
	Type  EventType       `json:"event_type"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// NewChangeEvent serializes payloads into a ChangeEvent. newRow and oldRow
// may be nil (deletes carry only old, inserts only new).
func NewChangeEvent(table Table, typ EventType, newRow, oldRow any) (ChangeEvent, error) {
	ev := ChangeEvent{Table: table, Type: typ}

	if newRow != nil {
		data, err := json.Marshal(newRow)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("failed to marshal new row: %w", err)
		}
		ev.New = data
	}
	if oldRow != nil {
		data, err := json.Marshal(oldRow)
		if err != nil {
			return ChangeEvent{}, fmt.Errorf("failed to marshal old row: %w", err)
		}
		ev.Old = data
	}
	return ev, nil
}

// RowRef is the minimal envelope decoded from an event payload: enough to
// patch a cache entry or route by owner without knowing the full row shape.
type RowRef struct {
	ID        uint64 `json:"id"`
	UserID    uint64 `json:"user_id"`
	TaskID    uint64 `json:"task_id"`
	ProjectID uint64 `json:"project_id"`
	CreatorID uint64 `json:"creator_id"`
}

// Ref decodes the event's row envelope, preferring the new row and falling
// back to the old one for deletes.
func (e ChangeEvent) Ref() (RowRef, bool) {
	payload := e.New
	if len(payload) == 0 {
		payload = e.Old
	}
	if len(payload) == 0 {
		return RowRef{}, false
	}

	var ref RowRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return RowRef{}, false
	}
	return ref, true
}

// Payload returns the row body the event carries.
func (e ChangeEvent) Payload() json.RawMessage {
	if len(e.New) > 0 {
		return e.New
	}
	return e.Old
}
