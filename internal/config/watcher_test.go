package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcher_ReloadOnWrite(t *testing.T) {
	unsetDroverEnv(t)

	dir := t.TempDir()
	require.NoError(t, DefaultConfig().Save(Path(dir)))

	var mu sync.Mutex
	var got *Config
	w, err := NewWatcher(dir, func(c *Config) {
		mu.Lock()
		got = c
		mu.Unlock()
	})
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	updated := DefaultConfig()
	updated.Model.Model = "gemini-2.5-flash"
	require.NoError(t, updated.Save(Path(dir)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got != nil && got.Model.Model == "gemini-2.5-flash"
	}, 5*time.Second, 25*time.Millisecond)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	unsetDroverEnv(t)

	dir := t.TempDir()
	require.NoError(t, DefaultConfig().Save(Path(dir)))

	var mu sync.Mutex
	reloads := 0
	w, err := NewWatcher(dir, func(*Config) {
		mu.Lock()
		reloads++
		mu.Unlock()
	})
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	other := filepath.Join(dir, ".drover", "scratch.txt")
	require.NoError(t, os.WriteFile(other, []byte("hi"), 0644))

	time.Sleep(300 * time.Millisecond)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, reloads)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}
