package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type buildLog struct {
	mu       sync.Mutex
	triggers []string
}

func (b *buildLog) add(trigger string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.triggers = append(b.triggers, trigger)
}

func (b *buildLog) snapshot() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.triggers...)
}

func runDaemon(t *testing.T, d *Daemon) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()
	t.Cleanup(cancelFn)
	return cancelFn, errc
}

func TestDaemon_BuildsOnStartupAndOnChange(t *testing.T) {
	root := t.TempDir()
	log := &buildLog{}
	d, err := New(Config{WatchPaths: []string{root}, Debounce: 20 * time.Millisecond}, func(_ context.Context, trigger string) error {
		log.add(trigger)
		return nil
	})
	require.NoError(t, err)

	cancel, done := runDaemon(t, d)
	require.Eventually(t, func() bool { return len(log.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{TriggerStartup}, log.snapshot())

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.md"), []byte("x"), 0o600))
	require.Eventually(t, func() bool { return len(log.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, TriggerChange, log.snapshot()[1])

	cancel()
	require.NoError(t, <-done)
}

func TestDaemon_CoalescesRequestsDuringBuild(t *testing.T) {
	release := make(chan struct{})
	log := &buildLog{}
	d, err := New(Config{}, func(_ context.Context, trigger string) error {
		log.add(trigger)
		if trigger == TriggerStartup {
			<-release
		}
		return nil
	})
	require.NoError(t, err)

	runDaemon(t, d)
	require.Eventually(t, func() bool { return len(log.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	for range 5 {
		d.Request(TriggerChange)
	}
	close(release)

	require.Eventually(t, func() bool { return len(log.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, log.snapshot(), 2)
}

func TestDaemon_KeepsRunningAfterFailure(t *testing.T) {
	d, err := New(Config{Interval: 20 * time.Millisecond}, func(context.Context, string) error {
		return fmt.Errorf("broken template")
	})
	require.NoError(t, err)

	runDaemon(t, d)
	require.Eventually(t, func() bool {
		builds, failures := d.Stats()
		return builds >= 2 && failures == builds
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDaemon_ServesMetrics(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "blogbuilder_up 1\n")
	})
	d, err := New(Config{MetricsAddr: addr, Metrics: handler}, func(context.Context, string) error { return nil })
	require.NoError(t, err)
	runDaemon(t, d)

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		data, _ := io.ReadAll(resp.Body)
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, "blogbuilder_up 1\n", body)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, nil)
	require.Error(t, err)

	_, err = New(Config{MetricsAddr: ":0"}, func(context.Context, string) error { return nil })
	require.Error(t, err)
}
