package services

import (
	"context"
	"log"

	"github.com/momentum-app/momentum-api/internal/realtime"
)

// EventBus publishes committed row changes to the realtime broker. A nil bus
// or a nil broker is a valid no-op publisher: mutations must never fail
// because the realtime transport is down, so publish errors are logged and
// swallowed.
type EventBus struct {
	broker realtime.Broker
}

// NewEventBus creates an EventBus. broker may be nil.
func NewEventBus(broker realtime.Broker) *EventBus {
	return &EventBus{broker: broker}
}

// PublishToUsers fans one change event out to each user's topic for the given
// category.
func (b *EventBus) PublishToUsers(ctx context.Context, category realtime.SubscriptionType, userIDs []uint64, table realtime.Table, typ realtime.EventType, newRow, oldRow any) {
	if b == nil || b.broker == nil {
		return
	}

	ev, err := realtime.NewChangeEvent(table, typ, newRow, oldRow)
	if err != nil {
		log.Printf("realtime: failed to encode %s/%s event: %v", table, typ, err)
		return
	}

	for _, id := range userIDs {
		if err := b.broker.Publish(ctx, realtime.UserTopic(category, id), ev); err != nil {
			log.Printf("realtime: failed to publish %s/%s to user %d: %v", table, typ, id, err)
		}
	}
}

// PublishToProject publishes one change event on a project's detail topic.
func (b *EventBus) PublishToProject(ctx context.Context, projectID uint64, table realtime.Table, typ realtime.EventType, newRow, oldRow any) {
	if b == nil || b.broker == nil {
		return
	}

	ev, err := realtime.NewChangeEvent(table, typ, newRow, oldRow)
	if err != nil {
		log.Printf("realtime: failed to encode %s/%s event: %v", table, typ, err)
		return
	}

	if err := b.broker.Publish(ctx, realtime.ProjectTopic(projectID), ev); err != nil {
		log.Printf("realtime: failed to publish %s/%s to project %d: %v", table, typ, projectID, err)
	}
}
