package config

import (
	"fmt"
	"strings"
)

// Validator checks configuration value ranges and formats.
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a TCP port number
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}

// ValidateRoutes checks the failover chain. Every route's provider must be
// among the configured providers; duplicate (provider, model) pairs are
// rejected because the chain would attempt them twice.
func (v *Validator) ValidateRoutes(routes []RouteConfig, providers []ProviderConfig) []error {
	var errors []error

	known := make(map[string]bool, len(providers))
	for _, p := range providers {
		known[p.Name] = true
	}

	seen := make(map[string]bool, len(routes))
	for i, r := range routes {
		if r.Provider == "" {
			errors = append(errors, fmt.Errorf("route %d: provider is required", i))
			continue
		}
		if r.Model == "" {
			errors = append(errors, fmt.Errorf("route %d: model is required", i))
		}
		if len(known) > 0 && !known[r.Provider] {
			errors = append(errors, fmt.Errorf("route %d: provider %q is not configured", i, r.Provider))
		}

		pair := r.Provider + "/" + r.Model
		if seen[pair] {
			errors = append(errors, fmt.Errorf("route %d: duplicate route %s", i, pair))
		}
		seen[pair] = true
	}

	return errors
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	for i, p := range cfg.Providers {
		if err := v.ValidateAPIKey(p.APIKey, p.Name); err != nil {
			errors = append(errors, fmt.Errorf("provider %d (%s): %w", i, p.Name, err))
		}
	}

	errors = append(errors, v.ValidateRoutes(cfg.Routes, cfg.Providers)...)

	if cfg.Router.MaxRetries < 0 {
		errors = append(errors, fmt.Errorf("router.max_retries must be >= 0"))
	}

	if cfg.Orchestrator.Temperature != 0 {
		if err := v.ValidateTemperature(cfg.Orchestrator.Temperature); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Orchestrator.MaxTokens != 0 {
		if err := v.ValidateMaxTokens(cfg.Orchestrator.MaxTokens); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Orchestrator.MaxContextTokens < 0 {
		errors = append(errors, fmt.Errorf("orchestrator.max_context_tokens must be >= 0"))
	}
	if cfg.Orchestrator.ToolTimeoutSecs < 0 {
		errors = append(errors, fmt.Errorf("orchestrator.tool_timeout_seconds must be >= 0"))
	}
	if cfg.Orchestrator.MaxToolArgBytes < 0 {
		errors = append(errors, fmt.Errorf("orchestrator.max_tool_arg_bytes must be >= 0"))
	}

	if cfg.Sessions.IdleTTLHours < 0 {
		errors = append(errors, fmt.Errorf("sessions.idle_ttl_hours must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidatePort(cfg.Gateway.Port); err != nil {
		errors = append(errors, fmt.Errorf("gateway: %w", err))
	}

	return errors
}
