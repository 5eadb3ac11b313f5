package session

import (
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
)

// Status values for SessionProgress
const (
	StatusIdle        = "idle"
	StatusThinking    = "thinking"
	StatusCallingTool = "calling_tool"
	StatusDone        = "done"
	StatusError       = "error"
)

// AgentStep types
const (
	StepThinking   = "thinking"
	StepToolCall   = "tool_call"
	StepToolResult = "tool_result"
	StepStatus     = "status"
)

// AgentStep is one entry in a turn's step trace.
type AgentStep struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Tool      string                 `json:"tool,omitempty"`
	Args      map[string]interface{} `json:"args,omitempty"`
	Result    string                 `json:"result,omitempty"`
	Success   *bool                  `json:"success,omitempty"`
	Duration  time.Duration          `json:"duration,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// SessionProgress is the observable snapshot of a running turn.
type SessionProgress struct {
	SessionID   string      `json:"session_id"`
	Status      string      `json:"status"`
	Iteration   int         `json:"iteration"`
	CurrentTool string      `json:"current_tool,omitempty"`
	Steps       []AgentStep `json:"steps"`
	StartedAt   time.Time   `json:"started_at"`
}

// Session is one conversation's state.
type Session struct {
	ID          string          `json:"id"`
	Messages    []llm.Message   `json:"messages"`
	TotalTokens int             `json:"total_tokens"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Progress    SessionProgress `json:"progress"`
}

// EstimateTokens sums the token estimate of every message in the history.
func (s *Session) EstimateTokens() int {
	total := 0
	for _, msg := range s.Messages {
		total += llm.EstimateTokens(msg)
	}
	return total
}
