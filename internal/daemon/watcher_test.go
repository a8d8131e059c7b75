package daemon

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w, err := NewWatcher([]string{root}, 100*time.Millisecond, func(string) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(root, "post.md"), []byte{byte('a' + i)}, 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load(), "burst must collapse into one callback")
}

func TestWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	changes := make(chan string, 10)
	w, err := NewWatcher([]string{root}, 20*time.Millisecond, func(reason string) { changes <- reason })
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	dir := filepath.Join(root, "2024", "01")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	waitChange(t, changes)

	// give the watcher a moment to register the new tree
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.md"), []byte("x"), 0o600))
	require.Contains(t, waitChange(t, changes), "new.md")
}

func TestWatcher_IgnoresHiddenFiles(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	w, err := NewWatcher([]string{root}, 20*time.Millisecond, func(string) { calls.Add(1) })
	require.NoError(t, err)
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(root, ".post.md.swp"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	require.Zero(t, calls.Load())
}

func TestWatcher_ExcludesOutputDirectory(t *testing.T) {
	root := t.TempDir()
	output := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(output, 0o750))

	changes := make(chan string, 10)
	w, err := NewWatcher([]string{root}, 20*time.Millisecond, func(reason string) { changes <- reason })
	require.NoError(t, err)
	require.NoError(t, w.Exclude(output))
	require.NoError(t, w.Start(t.Context()))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(output, "index.html"), []byte("x"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(output, "tags", "go"), 0o750))
	time.Sleep(150 * time.Millisecond)
	require.Empty(t, changes, "writes below the output directory must not trigger a rebuild")

	require.NoError(t, os.WriteFile(filepath.Join(root, "post.md"), []byte("x"), 0o600))
	require.Contains(t, waitChange(t, changes), "post.md")
}

func TestNewWatcher_RequiresCallback(t *testing.T) {
	_, err := NewWatcher([]string{t.TempDir()}, 0, nil)
	require.Error(t, err)
}

func waitChange(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case reason := <-ch:
		return reason
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}
