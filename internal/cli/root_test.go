package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := GetRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "forged version "+GetVersion())
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range GetRootCmd().Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "init")
}

func TestInitCommand(t *testing.T) {
	t.Run("should write a starter config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forged.json")

		out, err := execute(t, "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "anthropic")
		assert.Contains(t, string(data), "routes")
	})

	t.Run("should refuse to overwrite an existing config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forged.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

		_, err := execute(t, "init", "--config", path)
		assert.Error(t, err)
	})
}

func TestStatusCommandNotRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forged.json")
	content := `{"data_dir": "` + dir + `"}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	out, err := execute(t, "status", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}
