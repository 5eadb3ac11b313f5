package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/rs/zerolog"
)

// Manager owns the process-wide map of session id -> session state. All
// access goes through the manager so a single mutex guards the map and the
// sessions it holds.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   zerolog.Logger
}

// NewManager creates an empty session manager.
func NewManager(logger zerolog.Logger) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
	}

	logger.Info().Msg("Session manager initialized")

	return m
}

// GetOrCreate returns a copy of the session, creating it when absent.
func (m *Manager) GetOrCreate(id string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.getOrCreateLocked(id)
}

func (m *Manager) getOrCreateLocked(id string) *Session {
	if s, ok := m.sessions[id]; ok {
		return s
	}

	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Progress:  SessionProgress{SessionID: id, Status: StatusIdle},
	}
	m.sessions[id] = s

	m.logger.Debug().Str("session_id", id).Msg("Session created")

	return s
}

// Get returns a copy of the session's state.
func (m *Manager) Get(id string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}

	snapshot := *s
	snapshot.Messages = append([]llm.Message(nil), s.Messages...)
	snapshot.Progress.Steps = append([]AgentStep(nil), s.Progress.Steps...)
	return snapshot, true
}

// Messages returns a copy of the session's history.
func (m *Manager) Messages(id string) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	return append([]llm.Message(nil), s.Messages...)
}

// Append adds a message to the session's history.
func (m *Manager) Append(id string, msg llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(id)
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// TruncateLast drops the most recent n messages. Used to roll back a failed
// turn so it does not pollute future context.
func (m *Manager) TruncateLast(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || n <= 0 {
		return
	}
	if n > len(s.Messages) {
		n = len(s.Messages)
	}
	s.Messages = s.Messages[:len(s.Messages)-n]
	s.UpdatedAt = time.Now()
}

// ReplaceMessages swaps the whole history. Only the context pruner calls
// this; it must preserve temporal order of whatever it keeps.
func (m *Manager) ReplaceMessages(id string, messages []llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Messages = append([]llm.Message(nil), messages...)
	s.UpdatedAt = time.Now()
}

// AddTokens accumulates the session's total token counter.
func (m *Manager) AddTokens(id string, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.TotalTokens += tokens
}

// BeginTurn resets the progress snapshot for a new turn.
func (m *Manager) BeginTurn(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrCreateLocked(id)
	s.Progress = SessionProgress{
		SessionID: id,
		Status:    StatusThinking,
		StartedAt: time.Now(),
	}
}

// SetStatus updates the progress status.
func (m *Manager) SetStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Progress.Status = status
	if status != StatusCallingTool {
		s.Progress.CurrentTool = ""
	}
}

// SetCurrentTool marks which tool is executing.
func (m *Manager) SetCurrentTool(id, tool string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Progress.Status = StatusCallingTool
	s.Progress.CurrentTool = tool
}

// IncrementIteration bumps the turn's iteration counter and returns it.
func (m *Manager) IncrementIteration(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return 0
	}
	s.Progress.Iteration++
	return s.Progress.Iteration
}

// AppendStep adds a step to the turn's trace.
func (m *Manager) AppendStep(id string, step AgentStep) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	s.Progress.Steps = append(s.Progress.Steps, step)
}

// Progress returns a copy of the session's progress snapshot.
func (m *Manager) Progress(id string) (SessionProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return SessionProgress{}, fmt.Errorf("session not found: %s", id)
	}

	progress := s.Progress
	progress.Steps = append([]AgentStep(nil), s.Progress.Steps...)
	return progress, nil
}

// ResetProgress returns the progress snapshot to idle and drops the step
// trace. Called after the post-turn grace delay.
func (m *Manager) ResetProgress(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.Progress = SessionProgress{SessionID: id, Status: StatusIdle}
}

// Delete removes a session entirely.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// List returns the ids of all live sessions.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IdleSince returns ids of sessions not updated since the cutoff.
func (m *Manager) IdleSince(cutoff time.Time) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
