package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Broker is the change-event transport. The production implementation rides
// on Redis pub/sub; tests use the in-memory broker. The only delivery
// contract is "eventually delivers every published event for the topic" —
// no ordering, no exactly-once.
type Broker interface {
	Publish(ctx context.Context, topic string, ev ChangeEvent) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// Subscription is one open topic stream.
type Subscription interface {
	Events() <-chan ChangeEvent
	Close() error
}

// RedisBroker fans events out over Redis pub/sub channels.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects a broker to the given Redis address.
func NewRedisBroker(addr string) *RedisBroker {
	return &RedisBroker{
		client: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// Publish serializes the event onto the topic channel.
func (b *RedisBroker) Publish(ctx context.Context, topic string, ev ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if err := b.client.Publish(ctx, topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe opens a pub/sub channel and pumps decoded events until closed.
func (b *RedisBroker) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, topic)

	// Wait for the subscription to be confirmed before handing it out.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan ChangeEvent, 64),
	}
	go sub.pump()
	return sub, nil
}

// Ping checks broker liveness; the hub's health monitor calls this.
func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	pubsub    *redis.PubSub
	events    chan ChangeEvent
	closeOnce sync.Once
}

func (s *redisSubscription) pump() {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var ev ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("realtime: dropping undecodable event on %s: %v", msg.Channel, err)
			continue
		}
		s.events <- ev
	}
}

func (s *redisSubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

// MemoryBroker is an in-process Broker used by tests and single-node runs.
type MemoryBroker struct {
	mu     sync.Mutex
	topics map[string][]*memorySubscription
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{topics: make(map[string][]*memorySubscription)}
}

func (b *MemoryBroker) Publish(_ context.Context, topic string, ev ChangeEvent) error {
	b.mu.Lock()
	subs := make([]*memorySubscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(ev)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, topic string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, fmt.Errorf("broker is closed")
	}

	sub := &memorySubscription{
		broker: b,
		topic:  topic,
		events: make(chan ChangeEvent, 64),
	}
	b.topics[topic] = append(b.topics[topic], sub)
	return sub, nil
}

func (b *MemoryBroker) Ping(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("broker is closed")
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// SubscriberCount reports how many subscriptions a topic has (test helper).
func (b *MemoryBroker) SubscriberCount(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[topic])
}

type memorySubscription struct {
	broker *MemoryBroker
	topic  string
	events chan ChangeEvent
	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) deliver(ev ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		// Slow consumer: drop rather than block the publisher. The staleness
		// invalidation path reconciles anything missed.
	}
}

func (s *memorySubscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.broker.mu.Lock()
	subs := s.broker.topics[s.topic]
	for i, sub := range subs {
		if sub == s {
			s.broker.topics[s.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.broker.mu.Unlock()
	return nil
}
