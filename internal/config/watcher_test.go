package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/forgeai-dev/ForgeAI-sub001/pkg/router"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeSink struct {
	mu     sync.Mutex
	pushes [][]router.Route
}

func (s *routeSink) push(routes []router.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, routes)
}

func (s *routeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pushes)
}

func (s *routeSink) last() []router.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pushes) == 0 {
		return nil
	}
	return s.pushes[len(s.pushes)-1]
}

func writeConfig(t *testing.T, path, model string) {
	t.Helper()
	content := `{
		"providers": [{"name": "anthropic", "api_key": "sk-ant-REDACTED"}],
		"routes": [{"priority": 0, "provider": "anthropic", "model": "` + model + `"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func startWatcher(t *testing.T, path string, sink *routeSink) *Watcher {
	t.Helper()

	w, err := NewWatcher(NewLoader(path), zerolog.Nop(), sink.push)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	// Shorten the debounce so tests settle quickly
	w.debounce = 50 * time.Millisecond
	return w
}

func TestWatcherReloadsRoutesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forged.json")
	writeConfig(t, path, "claude-sonnet-4-20250514")

	sink := &routeSink{}
	startWatcher(t, path, sink)

	writeConfig(t, path, "claude-haiku-3-5")

	require.Eventually(t, func() bool {
		return sink.count() >= 1
	}, 3*time.Second, 25*time.Millisecond)

	routes := sink.last()
	require.Len(t, routes, 1)
	assert.Equal(t, "claude-haiku-3-5", routes[0].Model)
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forged.json")
	writeConfig(t, path, "claude-sonnet-4-20250514")

	sink := &routeSink{}
	startWatcher(t, path, sink)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestWatcherRejectsInvalidRoutes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forged.json")
	writeConfig(t, path, "claude-sonnet-4-20250514")

	sink := &routeSink{}
	startWatcher(t, path, sink)

	// Route points at a provider that is not configured
	content := `{
		"providers": [{"name": "anthropic", "api_key": "sk-ant-REDACTED"}],
		"routes": [{"priority": 0, "provider": "openai", "model": "gpt-4o"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, sink.count(), "invalid routes must not be pushed")
}

func TestWatcherStopCancelsPendingReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forged.json")
	writeConfig(t, path, "claude-sonnet-4-20250514")

	sink := &routeSink{}
	w := startWatcher(t, path, sink)
	w.debounce = 300 * time.Millisecond

	writeConfig(t, path, "claude-haiku-3-5")

	// Let the write event arm the debounce timer, then stop before it fires.
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, w.Stop())

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 0, sink.count(), "no reload may fire after Stop")
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forged.json")
	writeConfig(t, path, "claude-sonnet-4-20250514")

	sink := &routeSink{}
	startWatcher(t, path, sink)

	for i := 0; i < 5; i++ {
		writeConfig(t, path, "claude-haiku-3-5")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return sink.count() >= 1
	}, 3*time.Second, 25*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, sink.count(), "a burst of writes collapses into one reload")
}
