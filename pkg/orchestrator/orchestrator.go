package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/session"
	"github.com/forgeai-dev/ForgeAI-sub001/pkg/toolexecutor"
	"github.com/rs/zerolog"
)

// ChatCaller is the router surface the orchestrator needs.
type ChatCaller interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// ToolRunner is the tool executor surface the orchestrator needs. Tool
// implementations live outside this module.
type ToolRunner interface {
	ListForLLM() []llm.ToolDecl
	Execute(ctx context.Context, name string, args map[string]interface{}, execCtx *toolexecutor.ExecutionContext) toolexecutor.Result
}

// Verdict is a prompt guard's decision about one user input.
type Verdict struct {
	Allowed   bool
	Sanitized string
	Reason    string
}

// PromptGuard screens user input before it enters the conversation. The
// concrete screening logic is an external collaborator.
type PromptGuard interface {
	Screen(ctx context.Context, userID, input string) (Verdict, error)
}

// Result is the structured outcome of one processed message.
type Result struct {
	SessionID  string              `json:"session_id"`
	Content    string              `json:"content"`
	Blocked    bool                `json:"blocked,omitempty"`
	UserError  string              `json:"user_error,omitempty"`
	Usage      llm.Usage           `json:"usage"`
	Iterations int                 `json:"iterations"`
	Duration   time.Duration       `json:"duration"`
	Steps      []session.AgentStep `json:"steps,omitempty"`
}

// Config holds orchestrator construction parameters.
type Config struct {
	Router   ChatCaller
	Executor ToolRunner
	Sessions *session.Manager
	Guard    PromptGuard
	Logger   zerolog.Logger

	AgentID          string
	SystemPrompt     string
	Temperature      float64
	MaxTokens        int
	MaxContextTokens int
	ToolTimeout      time.Duration
	MaxToolArgBytes  int

	// ProgressGrace is how long progress/listener state survives after the
	// terminal event, so slow observers can still read it.
	ProgressGrace time.Duration
}

// Orchestrator drives the per-session tool-call loop.
type Orchestrator struct {
	router   ChatCaller
	executor ToolRunner
	sessions *session.Manager
	guard    PromptGuard
	bus      *ProgressBus
	logger   zerolog.Logger
	cfg      Config

	// afterFunc is swapped out in tests to make the cleanup delay immediate
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// New creates an orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Router == nil {
		return nil, fmt.Errorf("router is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.MaxContextTokens <= 0 {
		cfg.MaxContextTokens = 32768
	}
	if cfg.MaxToolArgBytes <= 0 {
		cfg.MaxToolArgBytes = 16384
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 60 * time.Second
	}
	if cfg.ProgressGrace <= 0 {
		cfg.ProgressGrace = 5 * time.Second
	}

	return &Orchestrator{
		router:    cfg.Router,
		executor:  cfg.Executor,
		sessions:  cfg.Sessions,
		guard:     cfg.Guard,
		bus:       NewProgressBus(cfg.Logger),
		logger:    cfg.Logger,
		cfg:       cfg,
		afterFunc: time.AfterFunc,
	}, nil
}

// Bus exposes the progress bus for observers such as the gateway bridge.
func (o *Orchestrator) Bus() *ProgressBus {
	return o.bus
}

// ProcessMessage runs one conversational turn: it loops between the model
// and the tool executor until the model stops requesting tools. All
// failures come back inside the Result, classified for the end user.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, userID, text string) Result {
	start := time.Now()
	logger := o.logger.With().Str("session_id", sessionID).Logger()

	// Screen the input before it can touch history.
	if o.guard != nil {
		verdict, err := o.guard.Screen(ctx, userID, text)
		if err != nil {
			logger.Error().Err(err).Msg("Prompt guard failed")
			return Result{SessionID: sessionID, UserError: msgGeneric, Duration: time.Since(start)}
		}
		if !verdict.Allowed {
			logger.Warn().Str("reason", verdict.Reason).Msg("Input blocked by prompt guard")
			return Result{SessionID: sessionID, Blocked: true, UserError: verdict.Reason, Duration: time.Since(start)}
		}
		if verdict.Sanitized != "" {
			text = verdict.Sanitized
		}
	}

	o.sessions.GetOrCreate(sessionID)
	o.sessions.BeginTurn(sessionID)
	o.sessions.Append(sessionID, llm.Message{Role: llm.RoleUser, Content: text})

	result := o.runLoop(ctx, sessionID, userID, logger)
	result.SessionID = sessionID
	result.Duration = time.Since(start)

	if progress, err := o.sessions.Progress(sessionID); err == nil {
		result.Iterations = progress.Iteration
		result.Steps = progress.Steps
	}

	o.scheduleCleanup(sessionID)

	return result
}

// runLoop is the thinking/tool-call cycle. The turn's tool exchange lives
// in a local slice; only the final assistant message is persisted, so a
// failed turn rolls back by dropping the one appended user message.
func (o *Orchestrator) runLoop(ctx context.Context, sessionID, userID string, logger zerolog.Logger) Result {
	tools := o.executor.ListForLLM()
	tracker := &signatureTracker{}

	var exchange []llm.Message
	var usage llm.Usage

	for {
		o.sessions.SetStatus(sessionID, session.StatusThinking)
		o.sessions.IncrementIteration(sessionID)
		o.publishProgress(sessionID)

		req := llm.ChatRequest{
			Messages:    append(o.sessions.Messages(sessionID), exchange...),
			System:      o.cfg.SystemPrompt,
			Tools:       tools,
			Temperature: o.cfg.Temperature,
			MaxTokens:   o.cfg.MaxTokens,
		}

		resp, err := o.router.Chat(ctx, req)
		if err != nil {
			return o.failTurn(sessionID, err, logger)
		}

		usage.Add(resp.Usage)
		if resp.Usage != nil {
			o.sessions.AddTokens(sessionID, resp.Usage.TotalTokens)
		}

		if resp.Thinking != "" {
			o.emitStep(sessionID, session.AgentStep{
				Type:    session.StepThinking,
				Message: resp.Thinking,
			})
		}

		if len(resp.ToolCalls) == 0 {
			return o.finishTurn(sessionID, resp, usage, logger)
		}

		// The model asked for tools. A repeat of the previous turn's exact
		// calls means it is stuck: synthesize results instead of executing,
		// and let it decide to stop on its own.
		assistantMsg := llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}

		if tracker.observe(signatureOf(resp.ToolCalls)) {
			logger.Warn().Int("tool_calls", len(resp.ToolCalls)).Msg("Duplicate tool calls detected, skipping execution")

			exchange = append(exchange, assistantMsg)
			for _, call := range resp.ToolCalls {
				o.emitStep(sessionID, session.AgentStep{
					Type:    session.StepStatus,
					Message: fmt.Sprintf("Skipped repeated call to %s", call.Name),
					Tool:    call.Name,
				})
				exchange = append(exchange, llm.Message{
					Role:       llm.RoleTool,
					Content:    msgAlreadyDone,
					ToolCallID: call.ID,
				})
			}
			continue
		}

		exchange = append(exchange, assistantMsg)
		exchange = append(exchange, o.dispatchTools(ctx, sessionID, userID, resp.ToolCalls)...)
	}
}

// dispatchTools executes the turn's tool calls strictly in order, one at a
// time, so every result is attributable to its originating call.
func (o *Orchestrator) dispatchTools(ctx context.Context, sessionID, userID string, calls []llm.ToolCall) []llm.Message {
	results := make([]llm.Message, 0, len(calls))

	for _, call := range calls {
		if len(toolexecutor.SerializeArgs(call.Arguments)) > o.cfg.MaxToolArgBytes {
			o.emitStep(sessionID, session.AgentStep{
				Type:    session.StepStatus,
				Message: fmt.Sprintf("Arguments for %s exceed the transport limit", call.Name),
				Tool:    call.Name,
			})
			results = append(results, llm.Message{
				Role:       llm.RoleTool,
				Content:    msgArgsTooLarge,
				ToolCallID: call.ID,
			})
			continue
		}

		o.sessions.SetCurrentTool(sessionID, call.Name)
		o.publishProgress(sessionID)
		o.emitStep(sessionID, session.AgentStep{
			Type:    session.StepToolCall,
			Message: fmt.Sprintf("Calling %s", call.Name),
			Tool:    call.Name,
			Args:    call.Arguments,
		})

		res := o.executor.Execute(ctx, call.Name, call.Arguments, &toolexecutor.ExecutionContext{
			SessionID: sessionID,
			UserID:    userID,
			Timeout:   o.cfg.ToolTimeout,
		})

		text := compactResult(call.Name, res)
		success := res.Success

		o.emitStep(sessionID, session.AgentStep{
			Type:     session.StepToolResult,
			Message:  fmt.Sprintf("%s finished", call.Name),
			Tool:     call.Name,
			Result:   text,
			Success:  &success,
			Duration: res.Duration,
		})

		results = append(results, llm.Message{
			Role:       llm.RoleTool,
			Content:    text,
			ToolCallID: call.ID,
		})
	}

	return results
}

// finishTurn persists the final assistant message, prunes history, and
// emits the terminal done event.
func (o *Orchestrator) finishTurn(sessionID string, resp *llm.ChatResponse, usage llm.Usage, logger zerolog.Logger) Result {
	o.sessions.SetStatus(sessionID, session.StatusDone)

	final := llm.Message{
		Role:     llm.RoleAssistant,
		Content:  resp.Content,
		Provider: resp.Provider,
		Model:    resp.Model,
	}
	if resp.Usage != nil {
		final.TokenCount = resp.Usage.CompletionTokens
	}
	o.sessions.Append(sessionID, final)

	history := o.sessions.Messages(sessionID)
	pruned := PruneHistory(history, o.cfg.MaxContextTokens)
	if len(pruned) != len(history) {
		logger.Info().
			Int("before", len(history)).
			Int("after", len(pruned)).
			Msg("Session history pruned")
		o.sessions.ReplaceMessages(sessionID, pruned)
	}

	var startedAt time.Time
	if progress, err := o.sessions.Progress(sessionID); err == nil {
		startedAt = progress.StartedAt
	}

	o.bus.Publish(Event{
		Type:      EventDone,
		SessionID: sessionID,
		AgentID:   o.cfg.AgentID,
		Done: &DonePayload{
			Content:  resp.Content,
			Model:    resp.Model,
			Provider: resp.Provider,
			Duration: time.Since(startedAt),
			Usage:    &usage,
		},
	})

	return Result{Content: resp.Content, Usage: usage}
}

// failTurn rolls back the appended user message so a failed turn does not
// pollute future context, and returns a classified user-facing error.
func (o *Orchestrator) failTurn(sessionID string, err error, logger zerolog.Logger) Result {
	logger.Error().Err(err).Msg("Turn failed")

	o.sessions.TruncateLast(sessionID, 1)
	o.sessions.SetStatus(sessionID, session.StatusError)

	userMsg := classifyError(err)
	o.bus.Publish(Event{
		Type:      EventError,
		SessionID: sessionID,
		AgentID:   o.cfg.AgentID,
		Error:     &ErrorPayload{Message: userMsg},
	})

	return Result{UserError: userMsg}
}

func (o *Orchestrator) emitStep(sessionID string, step session.AgentStep) {
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}
	o.sessions.AppendStep(sessionID, step)
	o.bus.Publish(Event{
		Type:      EventStep,
		SessionID: sessionID,
		AgentID:   o.cfg.AgentID,
		Step:      &step,
	})
}

func (o *Orchestrator) publishProgress(sessionID string) {
	progress, err := o.sessions.Progress(sessionID)
	if err != nil {
		return
	}
	o.bus.Publish(Event{
		Type:      EventProgress,
		SessionID: sessionID,
		AgentID:   o.cfg.AgentID,
		Progress:  &progress,
	})
}

// scheduleCleanup drops progress and listener state after a grace delay so
// slow observers can still read the terminal event.
func (o *Orchestrator) scheduleCleanup(sessionID string) {
	o.afterFunc(o.cfg.ProgressGrace, func() {
		o.bus.RemoveSession(sessionID)
		o.sessions.ResetProgress(sessionID)
	})
}
