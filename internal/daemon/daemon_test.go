package daemon

import (
	"testing"

	"github.com/forgeai-dev/ForgeAI-sub001/internal/config"
	"github.com/forgeai-dev/ForgeAI-sub001/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Providers = []config.ProviderConfig{
		{Name: "anthropic", APIKey: "sk-ant-REDACTED"},
		{Name: "openai", APIKey: "sk-test-abcdefghijklmnop"},
	}
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	l, err := logger.New(logger.Config{Level: "error", Console: false})
	require.NoError(t, err)
	return l
}

func TestNew(t *testing.T) {
	t.Run("should wire a valid config", func(t *testing.T) {
		d, err := New(testConfig(t), testLogger(t))
		require.NoError(t, err)

		assert.NotNil(t, d.Orchestrator())
		assert.Len(t, d.router.Routes(), 2)

		status := d.Status()
		assert.False(t, status.Running)
		assert.Equal(t, 2, status.Routes)
		assert.Equal(t, 8080, status.GatewayPort)
	})

	t.Run("should reject a config without providers", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Providers = nil

		_, err := New(cfg, testLogger(t))
		assert.Error(t, err)
	})

	t.Run("should reject bad API key formats", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Providers = []config.ProviderConfig{{Name: "anthropic", APIKey: "not-a-key"}}

		_, err := New(cfg, testLogger(t))
		assert.Error(t, err)
	})

	t.Run("should skip providers without credentials", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Routes = []config.RouteConfig{
			{Priority: 0, Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
		}
		cfg.Providers = []config.ProviderConfig{
			{Name: "anthropic", APIKey: "sk-ant-REDACTED"},
		}

		d, err := New(cfg, testLogger(t))
		require.NoError(t, err)
		assert.NotNil(t, d)
	})
}

func TestBuiltinEchoTool(t *testing.T) {
	d, err := New(testConfig(t), testLogger(t))
	require.NoError(t, err)

	decls := d.executor.ListForLLM()
	require.Len(t, decls, 1)
	assert.Equal(t, "echo", decls[0].Name)
}
