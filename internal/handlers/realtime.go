package handlers

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum-api/internal/cache"
	"github.com/momentum-app/momentum-api/internal/dto"
	apierrors "github.com/momentum-app/momentum-api/internal/errors"
	"github.com/momentum-app/momentum-api/internal/middleware"
	"github.com/momentum-app/momentum-api/internal/realtime"
)

const heartbeatInterval = 25 * time.Second

// RealtimeHandler streams change events to clients over SSE.
type RealtimeHandler struct {
	hub   *realtime.Hub
	users *cache.UserPreload
}

// NewRealtimeHandler creates a new RealtimeHandler. users may be nil to
// disable payload enrichment.
func NewRealtimeHandler(hub *realtime.Hub, users *cache.UserPreload) *RealtimeHandler {
	return &RealtimeHandler{
		hub:   hub,
		users: users,
	}
}

// enrichedEvent is the SSE payload: the raw change plus, when the row carries
// only an actor's foreign key, the resolved user.
type enrichedEvent struct {
	realtime.ChangeEvent
	Actor *dto.UserDTO `json:"actor,omitempty"`
}

// enrich resolves the actor behind the event's foreign key through the
// memoizing preload cache. Best-effort: a failed lookup ships the event bare.
func (h *RealtimeHandler) enrich(ev realtime.ChangeEvent) enrichedEvent {
	out := enrichedEvent{ChangeEvent: ev}
	if h.users == nil {
		return out
	}

	ref, ok := ev.Ref()
	if !ok {
		return out
	}
	actorID := ref.CreatorID
	if actorID == 0 {
		actorID = ref.UserID
	}
	if actorID == 0 {
		return out
	}

	user, err := h.users.Get(actorID)
	if err != nil {
		return out
	}
	actor := dto.ToUserDTO(user)
	out.Actor = &actor
	return out
}

// Stream opens one SSE connection multiplexing the user's change streams:
// tasks, projects, friend requests, notifications, and optionally one
// project's detail stream via the project_id query parameter. Slow clients
// drop events rather than block the hub; the cache-invalidation refetch on
// the client reconciles anything missed.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	events := make(chan realtime.ChangeEvent, 64)
	callback := func(ev realtime.ChangeEvent) {
		select {
		case events <- ev:
		default:
		}
	}

	unsubs := []realtime.Unsubscribe{
		h.hub.Subscribe(realtime.SubTasks, userID, callback),
		h.hub.Subscribe(realtime.SubProjects, userID, callback),
		h.hub.Subscribe(realtime.SubFriendRequests, userID, callback),
		h.hub.Subscribe(realtime.SubNotifications, userID, callback),
	}

	if projectIDStr := c.Query("project_id"); projectIDStr != "" {
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			for _, unsub := range unsubs {
				unsub()
			}
			return
		}
		unsubs = append(unsubs, h.hub.Subscribe(realtime.SubProjectDetail, userID, callback,
			realtime.SubscribeOptions{ProjectID: projectID}))
	}

	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-events:
			c.SSEvent("change", h.enrich(ev))
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
