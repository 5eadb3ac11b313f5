// Package config defines the daemon's configuration, its JSON loader, and
// the fsnotify watcher that hot-reloads routes.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/router"
)

// Config represents the daemon configuration
type Config struct {
	// Providers holds provider credentials
	Providers []ProviderConfig `json:"providers" mapstructure:"providers"`

	// Routes is the failover chain, lowest priority first
	Routes []RouteConfig `json:"routes" mapstructure:"routes"`

	// Router tunes the failover engine
	Router RouterConfig `json:"router" mapstructure:"router"`

	// Orchestrator tunes the tool-call loop
	Orchestrator OrchestratorConfig `json:"orchestrator" mapstructure:"orchestrator"`

	// Sessions tunes the in-memory session store
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Gateway configuration
	Gateway GatewayConfig `json:"gateway" mapstructure:"gateway"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ProviderConfig holds one provider's credentials. Providers without an API
// key are skipped at startup.
type ProviderConfig struct {
	Name   string `json:"name" mapstructure:"name"` // anthropic, openai
	APIKey string `json:"api_key" mapstructure:"api_key"`
}

// RouteConfig is one (provider, model) candidate in the failover chain.
type RouteConfig struct {
	Priority   int    `json:"priority" mapstructure:"priority"`
	Provider   string `json:"provider" mapstructure:"provider"`
	Model      string `json:"model" mapstructure:"model"`
	IsFallback bool   `json:"is_fallback" mapstructure:"is_fallback"`
}

// RouterConfig tunes retry behavior.
type RouterConfig struct {
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// OrchestratorConfig tunes the agentic loop.
type OrchestratorConfig struct {
	AgentID             string  `json:"agent_id" mapstructure:"agent_id"`
	SystemPrompt        string  `json:"system_prompt" mapstructure:"system_prompt"`
	Temperature         float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens           int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxContextTokens    int     `json:"max_context_tokens" mapstructure:"max_context_tokens"`
	ToolTimeoutSecs     int     `json:"tool_timeout_seconds" mapstructure:"tool_timeout_seconds"`
	MaxToolArgBytes     int     `json:"max_tool_arg_bytes" mapstructure:"max_tool_arg_bytes"`
	ProgressGraceSecs   int     `json:"progress_grace_seconds" mapstructure:"progress_grace_seconds"`
}

// SessionsConfig tunes the idle-session sweeper.
type SessionsConfig struct {
	SweepEnabled bool `json:"sweep_enabled" mapstructure:"sweep_enabled"`
	IdleTTLHours int  `json:"idle_ttl_hours" mapstructure:"idle_ttl_hours"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       string `json:"file" mapstructure:"file"`
	Console    bool   `json:"console" mapstructure:"console"`
	Pretty     bool   `json:"pretty" mapstructure:"pretty"`
	Redact     bool   `json:"redact" mapstructure:"redact"`
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// GatewayConfig holds gateway server configuration
type GatewayConfig struct {
	Port         int    `json:"port" mapstructure:"port"`
	Host         string `json:"host" mapstructure:"host"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Providers: []ProviderConfig{},
		Routes: []RouteConfig{
			{Priority: 0, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Priority: 1, Provider: "openai", Model: "gpt-4o", IsFallback: true},
		},
		Router: RouterConfig{
			MaxRetries: 2,
		},
		Orchestrator: OrchestratorConfig{
			AgentID:           "default",
			Temperature:       0.7,
			MaxTokens:         4096,
			MaxContextTokens:  32768,
			ToolTimeoutSecs:   60,
			MaxToolArgBytes:   16384,
			ProgressGraceSecs: 5,
		},
		Sessions: SessionsConfig{
			SweepEnabled: true,
			IdleTTLHours: 24,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			Pretty:     true,
			Redact:     true,
			MaxSizeMB:  100,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Gateway: GatewayConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
	}
}

// RouterRoutes converts the configured routes into the router's form.
func (c *Config) RouterRoutes() []router.Route {
	routes := make([]router.Route, 0, len(c.Routes))
	for _, r := range c.Routes {
		routes = append(routes, router.Route{
			Priority:   r.Priority,
			Provider:   r.Provider,
			Model:      r.Model,
			IsFallback: r.IsFallback,
		})
	}
	return routes
}

// String returns a JSON representation of the config. API keys are elided.
func (c *Config) String() string {
	clone := *c
	clone.Providers = make([]ProviderConfig, len(c.Providers))
	for i, p := range c.Providers {
		clone.Providers[i] = ProviderConfig{Name: p.Name, APIKey: "***"}
	}
	data, _ := json.MarshalIndent(clone, "", "  ")
	return string(data)
}

// Validate checks the structural requirements a daemon cannot start
// without. Range checks live in the Validator.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured: at least one provider with an api_key is required")
	}
	for i, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider %d: name is required", i)
		}
		if p.Name != "anthropic" && p.Name != "openai" {
			return fmt.Errorf("provider %d: unknown provider %q (must be: anthropic, openai)", i, p.Name)
		}
	}

	if len(c.Routes) == 0 {
		return fmt.Errorf("at least one route must be configured")
	}
	for i, r := range c.Routes {
		if r.Provider == "" {
			return fmt.Errorf("route %d: provider is required", i)
		}
		if r.Model == "" {
			return fmt.Errorf("route %d: model is required", i)
		}
	}

	return nil
}
