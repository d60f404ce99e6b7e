package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_SubscribeDeduplicatesChannels(t *testing.T) {
	broker := NewMemoryBroker()
	hub := NewHub(broker)
	defer hub.Close()

	var mu sync.Mutex
	var gotA, gotB int

	unsubA := hub.Subscribe(SubTasks, 42, func(ChangeEvent) {
		mu.Lock()
		gotA++
		mu.Unlock()
	})
	unsubB := hub.Subscribe(SubTasks, 42, func(ChangeEvent) {
		mu.Lock()
		gotB++
		mu.Unlock()
	})

	// Two callbacks, exactly one underlying channel.
	require.Equal(t, 1, hub.ChannelCount())
	require.Equal(t, 1, broker.SubscriberCount("momentum:tasks:user:42"))
	require.Equal(t, 2, hub.CallbackCount(SubTasks, 42))

	ev, err := NewChangeEvent(TableTasks, EventInsert, map[string]any{"id": 1}, nil)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), "momentum:tasks:user:42", ev))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotA == 1 && gotB == 1
	})

	// Unsubscribing one callback leaves the channel open.
	unsubA()
	assert.Equal(t, 1, hub.ChannelCount())
	assert.Equal(t, 1, hub.CallbackCount(SubTasks, 42))

	// Last listener out closes the connection.
	unsubB()
	assert.Equal(t, 0, hub.ChannelCount())
	waitFor(t, func() bool { return broker.SubscriberCount("momentum:tasks:user:42") == 0 })
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(NewMemoryBroker())
	defer hub.Close()

	unsubA := hub.Subscribe(SubTasks, 1, func(ChangeEvent) {})
	unsubB := hub.Subscribe(SubTasks, 1, func(ChangeEvent) {})

	unsubA()
	unsubA()
	assert.Equal(t, 1, hub.CallbackCount(SubTasks, 1))

	unsubB()
	assert.Equal(t, 0, hub.ChannelCount())
}

func TestHub_DifferentUserTearsDownStaleChannel(t *testing.T) {
	broker := NewMemoryBroker()
	hub := NewHub(broker)
	defer hub.Close()

	hub.Subscribe(SubTasks, 1, func(ChangeEvent) {})
	require.Equal(t, 1, broker.SubscriberCount("momentum:tasks:user:1"))

	hub.Subscribe(SubTasks, 2, func(ChangeEvent) {})

	assert.Equal(t, 1, hub.ChannelCount())
	assert.Equal(t, 0, broker.SubscriberCount("momentum:tasks:user:1"))
	assert.Equal(t, 1, broker.SubscriberCount("momentum:tasks:user:2"))
}

func TestHub_ProjectDetailChannelsAreKeyedByProject(t *testing.T) {
	hub := NewHub(NewMemoryBroker())
	defer hub.Close()

	hub.Subscribe(SubProjectDetail, 1, func(ChangeEvent) {}, SubscribeOptions{ProjectID: 7})
	hub.Subscribe(SubProjectDetail, 1, func(ChangeEvent) {}, SubscribeOptions{ProjectID: 8})

	assert.Equal(t, 2, hub.ChannelCount())
}

func TestHub_NilBrokerDegradesToNoop(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	unsub := hub.Subscribe(SubTasks, 1, func(ChangeEvent) {})
	require.NotNil(t, unsub)
	assert.NotPanics(t, func() { unsub() })
	assert.Equal(t, 0, hub.ChannelCount())
}

func TestHub_SubscribeFailureDegradesToNoop(t *testing.T) {
	broker := NewMemoryBroker()
	broker.Close()

	hub := NewHub(broker)
	defer hub.Close()

	unsub := hub.Subscribe(SubTasks, 1, func(ChangeEvent) {})
	assert.NotPanics(t, func() { unsub() })
	assert.Equal(t, 0, hub.ChannelCount())
}

func TestHub_ConcurrentSubscribesShareOneChannel(t *testing.T) {
	broker := NewMemoryBroker()
	hub := NewHub(broker)
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Subscribe(SubTasks, 5, func(ChangeEvent) {})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, hub.ChannelCount())
	assert.Equal(t, 1, broker.SubscriberCount("momentum:tasks:user:5"))
	assert.Equal(t, 16, hub.CallbackCount(SubTasks, 5))
}
