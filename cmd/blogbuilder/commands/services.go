package commands

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/deploy"
	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/notify"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

// historySize bounds the builds kept in memory for skip checks and listings.
const historySize = 100

// services holds everything a build needs beyond the configuration.
type services struct {
	builder   *build.Builder
	recorder  *metrics.PrometheusRecorder
	store     eventstore.Store
	history   *eventstore.BuildHistoryProjection
	publisher notify.Publisher
}

func openServices(ctx context.Context, cfg *config.Config) (*services, error) {
	renderer, err := templates.NewHTMLRenderer(cfg.Paths.Templates)
	if err != nil {
		return nil, err
	}

	s := &services{
		recorder:  metrics.NewPrometheusRecorder(nil),
		publisher: notify.NoopPublisher{},
	}
	opts := []build.Option{build.WithRecorder(s.recorder)}

	if cfg.Build.History != "" {
		store, history, err := openHistory(ctx, cfg.Build.History)
		if err != nil {
			return nil, err
		}
		s.store, s.history = store, history
		opts = append(opts, build.WithHistory(store, history))
	}

	if cfg.Events.NATSURL != "" {
		publisher, err := notify.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
		if err != nil {
			// Builds still run without a broker; notifications resume on the next start.
			slog.Warn("Build notifications disabled", logfields.Error(err))
		} else {
			s.publisher = publisher.WithRetry(cfg.Events.Retry.Policy())
		}
	}
	opts = append(opts, build.WithPublisher(s.publisher))

	if cfg.Deploy.Enabled() {
		deployer, err := newDeployer(ctx, cfg)
		if err != nil {
			s.Close()
			return nil, err
		}
		opts = append(opts, build.WithDeployer(deployer))
	}

	s.builder, err = build.New(cfg, renderer, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newDeployer(ctx context.Context, cfg *config.Config) (*deploy.S3Deployer, error) {
	target := cfg.Deploy.S3
	client, err := deploy.NewS3Client(ctx, deploy.ClientConfig{
		Region:    target.Region,
		Endpoint:  target.Endpoint,
		AccessKey: target.AccessKey,
		SecretKey: target.SecretKey,
	})
	if err != nil {
		return nil, err
	}
	return deploy.New(client, deploy.Options{
		Bucket:       target.Bucket,
		Prefix:       target.Prefix,
		CacheControl: target.CacheControl,
		Retry:        cfg.Events.Retry.Policy(),
	}), nil
}

func openHistory(ctx context.Context, path string) (*eventstore.SQLiteStore, *eventstore.BuildHistoryProjection, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, errors.WrapError(err, errors.CategoryFileSystem, "create history directory").
				WithContext("path", dir).
				Build()
		}
	}
	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return nil, nil, err
	}
	history := eventstore.NewBuildHistoryProjection(store, historySize)
	if err := history.Rebuild(ctx); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, history, nil
}

// Close releases the history database and the broker connection.
func (s *services) Close() {
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			slog.Warn("Failed to close publisher", logfields.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close history store", logfields.Error(err))
		}
	}
}
