package stream

import (
	"cmp"
	"maps"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Adirelle/docker-graph/pkg/errors"
	"github.com/Adirelle/docker-graph/pkg/events"
	"github.com/Adirelle/docker-graph/pkg/observability"
)

// DefaultHeartbeat is the interval between keep-alive comments.
const DefaultHeartbeat = 15 * time.Second

// subscriberBuffer is the number of events a subscriber may lag behind
// before it is disconnected.
const subscriberBuffer = 256

// Hub broadcasts events to SSE subscribers.
type Hub struct {
	// Heartbeat is the interval between keep-alive comments sent to idle
	// subscribers. Zero uses DefaultHeartbeat.
	Heartbeat time.Duration

	logger *log.Logger

	mu       sync.Mutex
	subs     map[string]chan events.Event
	retained map[string]events.Event
}

// NewHub returns an empty Hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		logger:   logger,
		subs:     make(map[string]chan events.Event),
		retained: make(map[string]events.Event),
	}
}

// Publish records e and sends it to every subscriber. Subscribers that
// cannot keep up are dropped; they resynchronise from the retained state
// when they reconnect.
func (h *Hub) Publish(e events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if e.IsContainer() {
		if e.IsRemoval() {
			delete(h.retained, e.TargetID)
		} else if e.Details != nil {
			h.retained[e.TargetID] = e
		}
	}

	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("dropping slow subscriber", "subscriber", id)
			delete(h.subs, id)
			close(ch)
		}
	}
}

// Retained returns the latest event of every live container, oldest first.
func (h *Hub) Retained() []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retainedLocked()
}

func (h *Hub) retainedLocked() []events.Event {
	out := slices.Collect(maps.Values(h.retained))
	slices.SortFunc(out, func(a, b events.Event) int {
		return cmp.Or(a.When().Compare(b.When()), cmp.Compare(a.TargetID, b.TargetID))
	})
	return out
}

// Subscribe registers a subscriber. It returns the subscriber id, the
// retained events to replay and the channel of subsequent events. The
// channel is closed by Unsubscribe or when the subscriber falls behind.
func (h *Hub) Subscribe() (string, []events.Event, <-chan events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan events.Event, subscriberBuffer)
	h.subs[id] = ch
	return id, h.retainedLocked(), ch
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// ParseLastEventID decodes a Last-Event-ID header: the time of the last
// event the client received, in Unix nanoseconds. An empty header yields the
// zero time.
func ParseLastEventID(header string) (time.Time, error) {
	if header == "" {
		return time.Time{}, nil
	}
	ns, err := strconv.ParseInt(header, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid Last-Event-ID %q", header)
	}
	return time.Unix(0, ns), nil
}

// seen reports whether a client resuming from since already has e. Events
// without a timestamp are always sent.
func seen(e events.Event, since time.Time) bool {
	if since.IsZero() {
		return false
	}
	t := e.When()
	return !t.IsZero() && !t.After(since)
}

// ServeHTTP streams events to the client until it disconnects. A client
// sending Last-Event-ID only receives events newer than that id.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	since, err := ParseLastEventID(r.Header.Get("Last-Event-ID"))
	if err != nil {
		http.Error(w, errors.UserMessage(err), http.StatusBadRequest)
		return
	}

	id, replay, ch := h.Subscribe()
	defer h.Unsubscribe(id)

	ctx := r.Context()
	logger := h.logger.With("subscriber", id)
	logger.Debug("subscriber connected", "remote", r.RemoteAddr, "replay", len(replay), "since", since)
	observability.Stream().OnSubscriber(ctx, 1)
	defer observability.Stream().OnSubscriber(ctx, -1)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, e := range replay {
		if seen(e, since) {
			continue
		}
		if err := events.WriteSSE(w, e); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := cmp.Or(h.Heartbeat, DefaultHeartbeat)
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("subscriber disconnected")
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			if seen(e, since) {
				continue
			}
			if err := events.WriteSSE(w, e); err != nil {
				logger.Debug("write failed", "err", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := w.Write([]byte(":\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
