package llm

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message represents a single conversation turn
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Timestamp  time.Time  `json:"timestamp"`
	TokenCount int        `json:"token_count,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	Model      string     `json:"model,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall represents a tool invocation requested by the model
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolDecl declares a tool to the model. Parameters carries the raw JSON
// schema for the tool's arguments.
type ToolDecl struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Usage tracks token consumption for a single call
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates usage counters from another call.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ChatRequest contains the request parameters for a chat call
type ChatRequest struct {
	Messages    []Message  `json:"messages"`
	System      string     `json:"system,omitempty"`
	Tools       []ToolDecl `json:"tools,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	Model       string     `json:"model,omitempty"`
	Temperature float64    `json:"temperature,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
}

// ChatResponse contains the model's reply
type ChatResponse struct {
	Content   string     `json:"content"`
	Thinking  string     `json:"thinking,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Usage     *Usage     `json:"usage,omitempty"`
	Provider  string     `json:"provider"`
	Model     string     `json:"model"`
}

// StreamEvent is one element of a streaming chat response. A stream is a
// sequence of Chunk events followed by exactly one event carrying either
// Final or Err, after which the channel is closed.
type StreamEvent struct {
	Chunk string
	Final *ChatResponse
	Err   error
}

// EstimateTokens provides a rough token count for a message, preferring the
// explicit count when one was recorded.
func EstimateTokens(msg Message) int {
	if msg.TokenCount > 0 {
		return msg.TokenCount
	}
	// Rough estimation: 1 token ≈ 4 characters
	return (len(msg.Content) + 3) / 4
}
