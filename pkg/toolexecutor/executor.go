package toolexecutor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/llm"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// ToolParameter defines a parameter for a tool
type ToolParameter struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
}

// ToolHandler is the function signature for tool execution
type ToolHandler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ToolDefinition defines a tool's metadata and handler
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Handler     ToolHandler     `json:"-"`
}

// ExecutionContext provides runtime information for tool execution
type ExecutionContext struct {
	SessionID  string
	UserID     string
	WorkingDir string
	Timeout    time.Duration
}

// Result represents the outcome of a tool execution
type Result struct {
	Success  bool          `json:"success"`
	Output   interface{}   `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// Executor manages and executes registered tools. Tool implementations
// themselves live outside this module; hosts register them here.
type Executor struct {
	tools   map[string]*ToolDefinition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// New creates an empty tool executor
func New(logger zerolog.Logger) *Executor {
	e := &Executor{
		tools:   make(map[string]*ToolDefinition),
		schemas: make(map[string]*gojsonschema.Schema),
		logger:  logger,
	}

	logger.Info().Msg("Tool executor initialized")

	return e
}

// Register adds a tool, compiling its argument schema for validation
func (e *Executor) Register(def ToolDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s has no handler", def.Name)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tools[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}

	schemaDoc := buildSchema(def.Parameters)
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaDoc))
	if err != nil {
		return fmt.Errorf("failed to compile schema for tool %s: %w", def.Name, err)
	}

	e.tools[def.Name] = &def
	e.schemas[def.Name] = schema

	e.logger.Debug().Str("tool", def.Name).Msg("Tool registered")

	return nil
}

// Get returns a tool definition by name
func (e *Executor) Get(name string) *ToolDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tools[name]
}

// ListForLLM returns every registered tool as a declaration suitable for
// the model's tool list, sorted by name so prompts stay stable across runs.
func (e *Executor) ListForLLM() []llm.ToolDecl {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	decls := make([]llm.ToolDecl, 0, len(names))
	for _, name := range names {
		def := e.tools[name]
		decls = append(decls, llm.ToolDecl{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  buildSchema(def.Parameters),
		})
	}
	return decls
}

// Execute runs a tool by name. Arguments are validated against the tool's
// schema before the handler runs; validation failures never reach the
// handler. Unknown tools return a failed result, not an error.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]interface{}, execCtx *ExecutionContext) Result {
	start := time.Now()

	e.mu.RLock()
	def, ok := e.tools[name]
	schema := e.schemas[name]
	e.mu.RUnlock()

	if !ok {
		return Result{
			Success:  false,
			Error:    fmt.Sprintf("tool not found: %s", name),
			Duration: time.Since(start),
		}
	}

	if err := validateArgs(schema, args); err != nil {
		e.logger.Warn().
			Str("tool", name).
			Err(err).
			Msg("Tool arguments failed validation")
		return Result{
			Success:  false,
			Error:    fmt.Sprintf("invalid arguments: %v", err),
			Duration: time.Since(start),
		}
	}

	if execCtx != nil && execCtx.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, execCtx.Timeout)
		defer cancel()
	}

	output, err := def.Handler(ctx, args)
	duration := time.Since(start)

	if err != nil {
		e.logger.Warn().
			Str("tool", name).
			Dur("duration", duration).
			Err(err).
			Msg("Tool execution failed")
		return Result{
			Success:  false,
			Error:    err.Error(),
			Duration: duration,
		}
	}

	e.logger.Debug().
		Str("tool", name).
		Dur("duration", duration).
		Msg("Tool executed")

	return Result{
		Success:  true,
		Output:   output,
		Duration: duration,
	}
}

func validateArgs(schema *gojsonschema.Schema, args map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := ""
		for _, desc := range result.Errors() {
			if msgs != "" {
				msgs += "; "
			}
			msgs += desc.String()
		}
		return fmt.Errorf("%s", msgs)
	}
	return nil
}

// buildSchema assembles the JSON schema document for a tool's parameters
func buildSchema(params []ToolParameter) map[string]interface{} {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range params {
		prop := map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Default != nil {
			prop["default"] = param.Default
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// SerializeArgs renders arguments as compact JSON for logging and
// signature comparison.
func SerializeArgs(args map[string]interface{}) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
