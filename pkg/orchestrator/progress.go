package orchestrator

import (
	"sync"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/session"
	"github.com/rs/zerolog"
)

// Event types delivered to progress listeners
const (
	EventProgress = "progress"
	EventStep     = "step"
	EventDone     = "done"
	EventError    = "error"
)

// DonePayload carries the terminal event of a successful turn.
type DonePayload struct {
	Content  string        `json:"content"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Duration time.Duration `json:"duration"`
	Usage    *llm.Usage    `json:"usage,omitempty"`
}

// ErrorPayload carries the terminal event of a failed turn. Message is the
// classified user-facing text, never the raw error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Event is one progress notification.
type Event struct {
	Type      string                   `json:"type"`
	SessionID string                   `json:"session_id"`
	AgentID   string                   `json:"agent_id,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
	Progress  *session.SessionProgress `json:"progress,omitempty"`
	Step      *session.AgentStep       `json:"step,omitempty"`
	Done      *DonePayload             `json:"done,omitempty"`
	Error     *ErrorPayload            `json:"error,omitempty"`
}

// Listener receives events for one session.
type Listener func(Event)

type listenerEntry struct {
	id int
	fn Listener
}

// ProgressBus delivers events synchronously to listeners in registration
// order, per session. A panicking listener is isolated: it is logged and
// the remaining listeners still receive the event.
type ProgressBus struct {
	listeners map[string][]listenerEntry
	nextID    int
	mu        sync.RWMutex
	logger    zerolog.Logger
}

// NewProgressBus creates an empty bus.
func NewProgressBus(logger zerolog.Logger) *ProgressBus {
	return &ProgressBus{
		listeners: make(map[string][]listenerEntry),
		logger:    logger,
	}
}

// Subscribe registers a listener for a session's events and returns an
// unsubscribe function.
func (b *ProgressBus) Subscribe(sessionID string, fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.listeners[sessionID] = append(b.listeners[sessionID], listenerEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		entries := b.listeners[sessionID]
		for i, entry := range entries {
			if entry.id == id {
				b.listeners[sessionID] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		if len(b.listeners[sessionID]) == 0 {
			delete(b.listeners, sessionID)
		}
	}
}

// Publish delivers the event to the session's listeners, in order.
func (b *ProgressBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	entries := append([]listenerEntry(nil), b.listeners[event.SessionID]...)
	b.mu.RUnlock()

	for _, entry := range entries {
		b.deliver(entry, event)
	}
}

func (b *ProgressBus) deliver(entry listenerEntry, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("session_id", event.SessionID).
				Str("event", event.Type).
				Interface("panic", r).
				Msg("Progress listener panicked")
		}
	}()
	entry.fn(event)
}

// RemoveSession drops every listener for a session. Called after the
// post-turn grace delay.
func (b *ProgressBus) RemoveSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, sessionID)
}

// ListenerCount reports how many listeners a session has.
func (b *ProgressBus) ListenerCount(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[sessionID])
}
