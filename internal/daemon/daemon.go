// Package daemon keeps a site up to date: it rebuilds when sources change
// and on a schedule, one build at a time.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	ferrors "git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Build triggers.
const (
	TriggerStartup  = "startup"
	TriggerChange   = "watch"
	TriggerSchedule = "schedule"
	TriggerHTTP     = "http"
)

// BuildFunc runs one build. trigger names what caused it.
type BuildFunc func(ctx context.Context, trigger string) error

// Config configures a Daemon.
type Config struct {
	WatchPaths  []string
	ExcludePath string // build output; its writes never trigger a rebuild
	Debounce    time.Duration
	Interval    time.Duration // 0 disables periodic rebuilds
	Cron        string        // optional cron expression for rebuilds
	MetricsAddr string        // serve metrics, health and build status here when set
	Metrics     http.Handler
	History     History // optional; enables GET /builds
}

// Daemon serializes builds requested by the watcher and the scheduler.
// Requests that arrive while a build runs collapse into one follow-up build.
type Daemon struct {
	cfg      Config
	build    BuildFunc
	requests chan string
	builds   atomic.Int64
	failures atomic.Int64
}

// New creates a daemon around build.
func New(cfg Config, build BuildFunc) (*Daemon, error) {
	if build == nil {
		return nil, ferrors.ValidationError("build function is required").Build()
	}
	if cfg.MetricsAddr != "" && cfg.Metrics == nil {
		return nil, ferrors.ConfigError("metrics address set without a metrics handler").Build()
	}
	return &Daemon{cfg: cfg, build: build, requests: make(chan string, 1)}, nil
}

// Request asks for a build. It never blocks; a request made while another
// is pending is merged into it.
func (d *Daemon) Request(trigger string) {
	select {
	case d.requests <- trigger:
	default:
		slog.Debug("Build already pending", slog.String("trigger", trigger))
	}
}

// Stats returns the number of builds run and how many failed.
func (d *Daemon) Stats() (builds, failures int64) {
	return d.builds.Load(), d.failures.Load()
}

// Run builds once, then keeps rebuilding until ctx is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	watcher, err := NewWatcher(d.cfg.WatchPaths, d.cfg.Debounce, func(reason string) {
		slog.Info("Rebuild requested", slog.String("reason", reason))
		d.Request(TriggerChange)
	})
	if err != nil {
		return err
	}
	if err := watcher.Exclude(d.cfg.ExcludePath); err != nil {
		_ = watcher.Stop()
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		_ = watcher.Stop()
		return err
	}
	defer func() { _ = watcher.Stop() }()

	sched, err := newSchedule(d.cfg.Interval, d.cfg.Cron, func() { d.Request(TriggerSchedule) })
	if err != nil {
		return err
	}
	if sched != nil {
		sched.start()
		defer sched.stop()
	}

	if d.cfg.MetricsAddr != "" {
		srv := d.newHTTPServer()
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Status server stopped", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	d.Request(TriggerStartup)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Daemon stopping")
			return nil
		case trigger := <-d.requests:
			d.runBuild(ctx, trigger)
		}
	}
}

func (d *Daemon) runBuild(ctx context.Context, trigger string) {
	d.builds.Add(1)
	if err := d.build(ctx, trigger); err != nil {
		d.failures.Add(1)
		if ctx.Err() != nil {
			return
		}
		// Keep serving; the next change may fix the problem.
		slog.Error("Build failed", slog.String("trigger", trigger), logfields.Error(err))
	}
}
