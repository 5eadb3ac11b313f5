package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAPIKey(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name     string
		key      string
		provider string
		wantErr  bool
	}{
		{"valid anthropic", "sk-ant-abcdefghijklmnop", "anthropic", false},
		{"valid openai", "sk-abcdefghijklmnop", "openai", false},
		{"anthropic wrong prefix", "sk-abcdefghijklmnop", "anthropic", true},
		{"openai wrong prefix", "key-abcdefghijklmnop", "openai", true},
		{"empty key", "", "anthropic", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateAPIKey(tt.key, tt.provider)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTemperature(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateTemperature(0))
	assert.NoError(t, v.ValidateTemperature(0.7))
	assert.NoError(t, v.ValidateTemperature(2))
	assert.Error(t, v.ValidateTemperature(-0.1))
	assert.Error(t, v.ValidateTemperature(2.1))
}

func TestValidateMaxTokens(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateMaxTokens(4096))
	assert.Error(t, v.ValidateMaxTokens(0))
	assert.Error(t, v.ValidateMaxTokens(-1))
	assert.Error(t, v.ValidateMaxTokens(200001))
}

func TestValidateLogLevel(t *testing.T) {
	v := NewValidator()

	for _, level := range []string{"debug", "info", "warn", "error"} {
		assert.NoError(t, v.ValidateLogLevel(level))
	}
	assert.Error(t, v.ValidateLogLevel("verbose"))
	assert.Error(t, v.ValidateLogLevel(""))
}

func TestValidatePort(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidatePort(8080))
	assert.Error(t, v.ValidatePort(0))
	assert.Error(t, v.ValidatePort(70000))
}

func TestValidateRoutes(t *testing.T) {
	v := NewValidator()
	providers := []ProviderConfig{{Name: "anthropic", APIKey: "sk-ant-x"}}

	t.Run("should accept a valid chain", func(t *testing.T) {
		routes := []RouteConfig{
			{Priority: 0, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Priority: 1, Provider: "anthropic", Model: "claude-haiku-3-5", IsFallback: true},
		}
		assert.Empty(t, v.ValidateRoutes(routes, providers))
	})

	t.Run("should reject routes to unconfigured providers", func(t *testing.T) {
		routes := []RouteConfig{{Priority: 0, Provider: "openai", Model: "gpt-4o"}}
		errs := v.ValidateRoutes(routes, providers)
		assert.Len(t, errs, 1)
	})

	t.Run("should reject duplicate provider model pairs", func(t *testing.T) {
		routes := []RouteConfig{
			{Priority: 0, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
			{Priority: 1, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		}
		errs := v.ValidateRoutes(routes, providers)
		assert.Len(t, errs, 1)
	})

	t.Run("should reject missing model", func(t *testing.T) {
		routes := []RouteConfig{{Priority: 0, Provider: "anthropic"}}
		errs := v.ValidateRoutes(routes, providers)
		assert.NotEmpty(t, errs)
	})
}

func TestValidateConfig(t *testing.T) {
	v := NewValidator()

	t.Run("should pass a valid config", func(t *testing.T) {
		assert.Empty(t, v.ValidateConfig(validConfig()))
	})

	t.Run("should collect multiple errors", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers[0].APIKey = "wrong"
		cfg.Logging.Level = "verbose"
		cfg.Gateway.Port = 0
		cfg.Router.MaxRetries = -1

		errs := v.ValidateConfig(cfg)
		assert.GreaterOrEqual(t, len(errs), 4)
	})
}
