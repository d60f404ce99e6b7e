package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// SubscriptionType is a channel category. Each category maps to one broker
// topic per user (or per project for detail channels).
type SubscriptionType string

const (
	SubProjects       SubscriptionType = "projects"
	SubTasks          SubscriptionType = "tasks"
	SubNotifications  SubscriptionType = "notifications"
	SubFriendRequests SubscriptionType = "friend-requests"
	SubProjectDetail  SubscriptionType = "project-detail"
)

// Callback receives change events on the subscriber's goroutine.
type Callback func(ChangeEvent)

// SubscribeOptions tune a subscription; ProjectID is required for
// project-detail channels and ignored elsewhere.
type SubscribeOptions struct {
	ProjectID uint64
}

const (
	healthCheckInterval = 30 * time.Second
	reconnectBaseDelay  = time.Second
	reconnectMaxDelay   = 30 * time.Second
)

// Hub guarantees at most one open broker channel per (category, user) no
// matter how many consumers come and go. Callbacks are reference-counted per
// channel; the last unsubscribe tears the channel down. A health monitor
// pings the broker and rebuilds every channel after an outage, replaying the
// registered callbacks onto fresh subscriptions.
//
// The hub is constructed explicitly and passed by reference — one instance
// per running process, injected, never a hidden global.
type Hub struct {
	broker Broker

	mu           sync.Mutex
	channels     map[string]*managedChannel
	initializing map[string]chan struct{}
	nextCallback uint64

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

type managedChannel struct {
	key       string
	topic     string
	category  SubscriptionType
	userID    uint64
	callbacks map[uint64]Callback
	sub       Subscription
	done      chan struct{}
}

func NewHub(broker Broker) *Hub {
	return &Hub{
		broker:       broker,
		channels:     make(map[string]*managedChannel),
		initializing: make(map[string]chan struct{}),
		stop:         make(chan struct{}),
	}
}

// Unsubscribe detaches one callback. Safe to call more than once.
type Unsubscribe func()

var noopUnsubscribe Unsubscribe = func() {}

// Subscribe attaches callback to the (category, user) channel, opening it if
// needed. A live channel in the same category for a different user is torn
// down first. When the broker is unreachable the subscription degrades to a
// no-op: callers keep working through their normal refetch path.
func (h *Hub) Subscribe(category SubscriptionType, userID uint64, callback Callback, opts ...SubscribeOptions) Unsubscribe {
	if h.broker == nil {
		return noopUnsubscribe
	}

	var opt SubscribeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	key := channelKey(category, userID, opt)

	for {
		h.mu.Lock()

		// Same category bound to a different user: stale session, replace it.
		h.teardownOtherUsersLocked(category, userID)

		if ch, ok := h.channels[key]; ok {
			id := h.attachLocked(ch, callback)
			h.mu.Unlock()
			return h.unsubscribeFunc(key, id)
		}

		if waitCh, busy := h.initializing[key]; busy {
			// Another caller is opening this channel; wait and re-enter.
			h.mu.Unlock()
			<-waitCh
			continue
		}

		waitCh := make(chan struct{})
		h.initializing[key] = waitCh
		h.mu.Unlock()

		ch, err := h.openChannel(key, category, userID, opt)

		h.mu.Lock()
		delete(h.initializing, key)
		close(waitCh)

		if err != nil {
			h.mu.Unlock()
			log.Printf("realtime: subscribe %s degraded to no-op: %v", key, err)
			return noopUnsubscribe
		}

		h.channels[key] = ch
		id := h.attachLocked(ch, callback)
		h.mu.Unlock()
		return h.unsubscribeFunc(key, id)
	}
}

// ChannelCount reports the number of open channels.
func (h *Hub) ChannelCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

// CallbackCount reports the callbacks attached to one channel.
func (h *Hub) CallbackCount(category SubscriptionType, userID uint64, opts ...SubscribeOptions) int {
	var opt SubscribeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	ch, ok := h.channels[channelKey(category, userID, opt)]
	if !ok {
		return 0
	}
	return len(ch.callbacks)
}

// StartHealthMonitor launches the periodic broker health check. On failure
// it reconnects with exponential backoff and rebuilds every channel.
func (h *Hub) StartHealthMonitor(ctx context.Context) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(healthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case <-ticker.C:
				if err := h.broker.Ping(ctx); err != nil {
					log.Printf("realtime: health check failed: %v", err)
					h.reconnect(ctx)
				}
			}
		}
	}()
}

// Close tears down every channel and stops the health monitor. Idempotent.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})

	h.mu.Lock()
	for key, ch := range h.channels {
		h.closeChannelLocked(key, ch)
	}
	h.mu.Unlock()

	h.wg.Wait()
}

func channelKey(category SubscriptionType, userID uint64, opt SubscribeOptions) string {
	if category == SubProjectDetail {
		return fmt.Sprintf("%s:%d:project:%d", category, userID, opt.ProjectID)
	}
	return fmt.Sprintf("%s:%d", category, userID)
}

func topicFor(category SubscriptionType, userID uint64, opt SubscribeOptions) string {
	if category == SubProjectDetail {
		return ProjectTopic(opt.ProjectID)
	}
	return UserTopic(category, userID)
}

// UserTopic is the broker topic carrying a user's events for one category.
// Publishers and subscribers must agree on it.
func UserTopic(category SubscriptionType, userID uint64) string {
	return fmt.Sprintf("momentum:%s:user:%d", category, userID)
}

// ProjectTopic is the broker topic carrying a project's detail events.
func ProjectTopic(projectID uint64) string {
	return fmt.Sprintf("momentum:project:%d", projectID)
}

func (h *Hub) attachLocked(ch *managedChannel, callback Callback) uint64 {
	h.nextCallback++
	id := h.nextCallback
	ch.callbacks[id] = callback
	return id
}

func (h *Hub) unsubscribeFunc(key string, id uint64) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			ch, ok := h.channels[key]
			if !ok {
				return
			}
			delete(ch.callbacks, id)
			if len(ch.callbacks) == 0 {
				// Last listener out closes the connection.
				h.closeChannelLocked(key, ch)
			}
		})
	}
}

func (h *Hub) openChannel(key string, category SubscriptionType, userID uint64, opt SubscribeOptions) (*managedChannel, error) {
	topic := topicFor(category, userID, opt)

	sub, err := h.broker.Subscribe(context.Background(), topic)
	if err != nil {
		return nil, err
	}

	ch := &managedChannel{
		key:       key,
		topic:     topic,
		category:  category,
		userID:    userID,
		callbacks: make(map[uint64]Callback),
		sub:       sub,
		done:      make(chan struct{}),
	}

	h.wg.Add(1)
	go h.pump(ch)
	return ch, nil
}

func (h *Hub) pump(ch *managedChannel) {
	defer h.wg.Done()
	for {
		select {
		case <-ch.done:
			return
		case ev, ok := <-ch.sub.Events():
			if !ok {
				return
			}
			h.mu.Lock()
			callbacks := make([]Callback, 0, len(ch.callbacks))
			for _, cb := range ch.callbacks {
				callbacks = append(callbacks, cb)
			}
			h.mu.Unlock()

			for _, cb := range callbacks {
				cb(ev)
			}
		}
	}
}

func (h *Hub) teardownOtherUsersLocked(category SubscriptionType, userID uint64) {
	for key, ch := range h.channels {
		if ch.category == category && ch.userID != userID {
			h.closeChannelLocked(key, ch)
		}
	}
}

func (h *Hub) closeChannelLocked(key string, ch *managedChannel) {
	select {
	case <-ch.done:
	default:
		close(ch.done)
	}
	ch.sub.Close()
	delete(h.channels, key)
}

// reconnect rebuilds every channel after a broker outage, replaying the
// registered callbacks onto fresh subscriptions. Backoff doubles from one
// second up to the thirty second cap.
func (h *Hub) reconnect(ctx context.Context) {
	delay := reconnectBaseDelay
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-time.After(delay):
		}

		if err := h.broker.Ping(ctx); err == nil {
			h.rebuildChannels()
			return
		}

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

func (h *Hub) rebuildChannels() {
	h.mu.Lock()
	old := h.channels
	h.channels = make(map[string]*managedChannel, len(old))
	h.mu.Unlock()

	for key, ch := range old {
		select {
		case <-ch.done:
		default:
			close(ch.done)
		}
		ch.sub.Close()

		sub, err := h.broker.Subscribe(context.Background(), ch.topic)
		if err != nil {
			log.Printf("realtime: failed to rebuild channel %s: %v", key, err)
			continue
		}

		fresh := &managedChannel{
			key:       ch.key,
			topic:     ch.topic,
			category:  ch.category,
			userID:    ch.userID,
			callbacks: ch.callbacks,
			sub:       sub,
			done:      make(chan struct{}),
		}

		h.mu.Lock()
		h.channels[key] = fresh
		h.mu.Unlock()

		h.wg.Add(1)
		go h.pump(fresh)
	}
}
