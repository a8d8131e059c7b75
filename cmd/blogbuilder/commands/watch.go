package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/daemon"
	"git.home.luguber.info/inful/blogbuilder/internal/observability"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Interval    time.Duration `help:"Rebuild periodically (overrides watch.interval)"`
	Cron        string        `help:"Rebuild on a cron schedule (overrides watch.cron)"`
	MetricsAddr string        `name:"metrics-addr" help:"Serve metrics, health and build status on this address (overrides watch.metrics_addr)"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if w.Interval > 0 {
		cfg.Watch.Interval = w.Interval
	}
	if w.Cron != "" {
		cfg.Watch.Cron = w.Cron
	}
	if w.MetricsAddr != "" {
		cfg.Watch.MetricsAddr = w.MetricsAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	paths := []string{cfg.Paths.Content}
	if cfg.Paths.Templates != "" {
		paths = append(paths, cfg.Paths.Templates)
	}
	dcfg := daemon.Config{
		WatchPaths:  paths,
		ExcludePath: cfg.Paths.Output,
		Debounce:    cfg.Watch.Debounce,
		Interval:    cfg.Watch.Interval,
		Cron:        cfg.Watch.Cron,
		MetricsAddr: cfg.Watch.MetricsAddr,
	}
	if dcfg.MetricsAddr != "" {
		svc.recorder.RegisterRuntimeCollectors()
		dcfg.Metrics = svc.recorder.HTTPHandler()
		if svc.history != nil {
			dcfg.History = svc.history
		}
	}

	d, err := daemon.New(dcfg, func(ctx context.Context, trigger string) error {
		_, err := svc.builder.Run(observability.WithTrigger(ctx, trigger))
		return err
	})
	if err != nil {
		return err
	}

	slog.Info("Watching for changes", slog.Any("paths", paths))
	if err := d.Run(ctx); err != nil {
		return err
	}
	builds, failures := d.Stats()
	slog.Info("Watch stopped", slog.Int64("builds", builds), slog.Int64("failures", failures))
	return nil
}
