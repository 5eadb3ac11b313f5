package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Providers = []ProviderConfig{
		{Name: "anthropic", APIKey: "sk-ant-REDACTED"},
		{Name: "openai", APIKey: "sk-abcdefghijklmnopqrstuvwxyz"},
	}
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.Routes)
	assert.Equal(t, 2, cfg.Router.MaxRetries)
	assert.Equal(t, 32768, cfg.Orchestrator.MaxContextTokens)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.True(t, cfg.Sessions.SweepEnabled)
}

func TestConfigValidate(t *testing.T) {
	t.Run("should accept a valid config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("should require providers", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject unknown provider names", func(t *testing.T) {
		cfg := validConfig()
		cfg.Providers = []ProviderConfig{{Name: "gemini", APIKey: "key"}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("should require routes", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routes = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("should require route provider and model", func(t *testing.T) {
		cfg := validConfig()
		cfg.Routes = []RouteConfig{{Priority: 0, Provider: "anthropic"}}
		assert.Error(t, cfg.Validate())
	})
}

func TestRouterRoutes(t *testing.T) {
	cfg := validConfig()
	cfg.Routes = []RouteConfig{
		{Priority: 1, Provider: "openai", Model: "gpt-4o", IsFallback: true},
		{Priority: 0, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
	}

	routes := cfg.RouterRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, "openai", routes[0].Provider)
	assert.True(t, routes[0].IsFallback)
	assert.Equal(t, 0, routes[1].Priority)
}

func TestConfigStringElidesKeys(t *testing.T) {
	cfg := validConfig()
	s := cfg.String()

	assert.NotContains(t, s, "sk-ant-REDACTED")
	assert.Contains(t, s, `"anthropic"`)
}
