package build

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/blogbuilder/internal/blog"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
	"git.home.luguber.info/inful/blogbuilder/internal/notify"
	"git.home.luguber.info/inful/blogbuilder/internal/observability"
	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

// TriggerCLI is used when the context names no trigger.
const TriggerCLI = "cli"

// textfileWriter is implemented by recorders that can export a snapshot
// for node_exporter.
type textfileWriter interface {
	WriteTextfile(path string) error
}

// Deployer publishes the output directory after a successful build.
type Deployer interface {
	Deploy(ctx context.Context, dir string) (int, error)
	Target() string
}

// Builder executes builds for one configuration.
type Builder struct {
	cfg       *config.Config
	renderer  templates.Renderer
	recorder  metrics.Recorder
	store     eventstore.Store
	history   *eventstore.BuildHistoryProjection
	publisher notify.Publisher
	deployer  Deployer
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithHistory persists build events to store and keeps history up to date.
// The projection answers the skip-unchanged check.
func WithHistory(store eventstore.Store, history *eventstore.BuildHistoryProjection) Option {
	return func(b *Builder) {
		b.store = store
		b.history = history
	}
}

// WithPublisher sets where build notifications go.
func WithPublisher(p notify.Publisher) Option {
	return func(b *Builder) {
		if p != nil {
			b.publisher = p
		}
	}
}

// WithDeployer adds a deploy stage after the blog stage. Skipped builds
// are not deployed.
func WithDeployer(d Deployer) Option {
	return func(b *Builder) {
		b.deployer = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a Builder. renderer serves both document and list templates.
func New(cfg *config.Config, renderer templates.Renderer, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errors.ConfigError("config required").Build()
	}
	if renderer == nil {
		return nil, errors.InternalError("renderer required").Build()
	}
	b := &Builder{
		cfg:       cfg,
		renderer:  renderer,
		recorder:  metrics.NoopRecorder{},
		publisher: notify.NoopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run executes one build. The returned report is never nil; the error is
// the one that stopped the build, or nil for success and skipped builds.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	trigger := observability.GetContext(ctx).Trigger
	if trigger == "" {
		trigger = TriggerCLI
	}
	report := &Report{
		BuildID:        uuid.NewString(),
		Trigger:        trigger,
		Start:          b.now(),
		StageDurations: make(map[string]time.Duration),
	}
	ctx = observability.WithBuildID(ctx, report.BuildID)
	ctx = observability.WithTrigger(ctx, trigger)
	observability.InfoContext(ctx, "Build started", slog.String("output", b.cfg.Paths.Output))

	event, err := eventstore.NewBuildStarted(report.BuildID, trigger, report.Start)
	b.record(ctx, event, err)

	err = b.execute(ctx, report)
	b.finish(ctx, report, err)
	return report, err
}

func (b *Builder) execute(ctx context.Context, report *Report) error {
	var documents []content.Document

	err := b.runStage(ctx, report, StageLoad, func(ctx context.Context) error {
		loader := content.NewLoader(b.cfg.Paths.Content, b.cfg.Site.URL, b.cfg.Site.Author, b.cfg.Location())
		docs, err := loader.Load()
		if err != nil {
			return err
		}
		fingerprint, err := SiteFingerprint(b.cfg, docs)
		if err != nil {
			return err
		}
		documents = docs
		report.Documents = len(docs)
		report.Posts = len(blog.ExtractPosts(docs))
		report.Fingerprint = fingerprint
		observability.InfoContext(ctx, "Content loaded",
			logfields.Documents(report.Documents),
			logfields.Posts(report.Posts))

		event, err := eventstore.NewContentLoaded(report.BuildID, report.Documents, report.Posts, fingerprint, b.now())
		b.record(ctx, event, err)
		return nil
	})
	if err != nil {
		return err
	}

	if b.cfg.Build.SkipUnchanged {
		err = b.runStage(ctx, report, StageSkipCheck, func(ctx context.Context) error {
			if last := b.unchangedSince(report.Fingerprint); last != nil {
				report.Outcome = OutcomeSkipped
				report.Pages = last.Pages
				report.Tags = last.Tags
				report.FeedEntries = last.FeedEntries
				observability.InfoContext(ctx, "Build skipped, content unchanged",
					slog.String("previous_build", last.BuildID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if report.Outcome == OutcomeSkipped {
			b.recorder.IncStageResult(StageDocuments, metrics.ResultSkipped)
			b.recorder.IncStageResult(StageBlog, metrics.ResultSkipped)
			return nil
		}
	}

	err = b.runStage(ctx, report, StageDocuments, func(ctx context.Context) error {
		if err := os.MkdirAll(b.cfg.Paths.Output, 0o755); err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
				WithContext("path", b.cfg.Paths.Output).
				Build()
		}
		writer := &site.Writer{
			OutputDir: b.cfg.Paths.Output,
			SiteName:  b.cfg.Site.Name,
			Renderer:  b.renderer,
			Reserved:  b.cfg.Generator().OutputPaths(blog.ExtractPosts(documents)),
		}
		pages, err := writer.WriteDocuments(documents)
		report.Pages = pages
		return err
	})
	if err != nil {
		return err
	}

	err = b.runStage(ctx, report, StageBlog, func(ctx context.Context) error {
		generator := blog.New(b.cfg.Generator(), b.renderer,
			blog.WithLogger(observability.Logger(ctx)),
			blog.WithClock(b.now))
		result, err := generator.Generate(documents)
		if err != nil {
			return err
		}
		report.Tags = result.Tags
		report.FeedEntries = result.FeedEntries
		return nil
	})
	if err != nil || b.deployer == nil {
		return err
	}

	return b.runStage(ctx, report, StageDeploy, func(ctx context.Context) error {
		observability.InfoContext(ctx, "Deploying site", slog.String("target", b.deployer.Target()))
		uploaded, err := b.deployer.Deploy(ctx, b.cfg.Paths.Output)
		report.Uploaded = uploaded
		return err
	})
}

// runStage times fn and records its result. A canceled context stops the
// build before the stage starts.
func (b *Builder) runStage(ctx context.Context, report *Report, stage string, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, stage)

	select {
	case <-ctx.Done():
		report.FailedStage = stage
		b.recorder.IncStageResult(stage, metrics.ResultCanceled)
		return ctx.Err()
	default:
	}

	started := b.now()
	err := fn(ctx)
	elapsed := b.now().Sub(started)
	report.StageDurations[stage] = elapsed
	b.recorder.ObserveStageDuration(stage, elapsed)

	if err != nil {
		report.FailedStage = stage
		b.recorder.IncStageResult(stage, metrics.ResultFatal)
		return err
	}
	b.recorder.IncStageResult(stage, metrics.ResultSuccess)
	observability.DebugContext(ctx, "Stage complete", logfields.Duration(elapsed))
	return nil
}

// unchangedSince returns the last successful build when it produced the
// same fingerprint and its output is still in place.
func (b *Builder) unchangedSince(fingerprint string) *eventstore.BuildSummary {
	if b.history == nil {
		slog.Debug("No build history configured, cannot skip")
		return nil
	}
	last := b.history.LastSuccessful()
	if last == nil || last.Fingerprint == "" || last.Fingerprint != fingerprint {
		return nil
	}
	if _, err := os.Stat(b.indexPath()); err != nil {
		slog.Debug("Previous output missing, rebuilding", logfields.Path(b.indexPath()))
		return nil
	}
	return last
}

func (b *Builder) finish(ctx context.Context, report *Report, err error) {
	report.End = b.now()
	report.Error = err

	switch {
	case err == nil && report.Outcome == "":
		report.Outcome = OutcomeSuccess
	case err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		report.Outcome = OutcomeCanceled
	case err != nil:
		report.Outcome = OutcomeFailed
	}

	b.recorder.IncBuildOutcome(report.Outcome.metricLabel())
	b.recorder.ObserveBuildDuration(report.Duration())
	if report.Outcome.IsSuccess() {
		b.recorder.SetSiteSize(report.Documents, report.Posts, report.Tags)
	}

	// History and notifications outlive a canceled build context.
	persistCtx := context.WithoutCancel(ctx)
	var (
		event    eventstore.Event
		eventErr error
	)
	if err == nil {
		event, eventErr = eventstore.NewBuildCompleted(report.BuildID, string(report.Outcome), report.Duration(),
			report.Pages, report.Tags, report.FeedEntries, report.End)
	} else {
		event, eventErr = eventstore.NewBuildFailed(report.BuildID, report.FailedStage, err.Error(),
			report.Outcome == OutcomeCanceled, report.End)
	}
	b.record(persistCtx, event, eventErr)
	b.publish(persistCtx, report)

	if path := b.cfg.Build.MetricsFile; path != "" {
		if w, ok := b.recorder.(textfileWriter); ok {
			if err := w.WriteTextfile(path); err != nil {
				observability.WarnContext(ctx, "Failed to write metrics textfile", logfields.Path(path), logfields.Error(err))
			}
		}
	}

	attrs := []slog.Attr{
		logfields.Outcome(string(report.Outcome)),
		logfields.Duration(report.Duration()),
		logfields.Documents(report.Documents),
		logfields.Posts(report.Posts),
		slog.Int("tags", report.Tags),
		slog.Int("feed_entries", report.FeedEntries),
	}
	if report.Error != nil {
		attrs = append(attrs, logfields.Stage(report.FailedStage), logfields.Error(report.Error))
		observability.ErrorContext(ctx, "Build finished", attrs...)
		return
	}
	observability.InfoContext(ctx, "Build finished", attrs...)
}

// record persists an event. History is best effort: a failure is logged
// and the build carries on.
func (b *Builder) record(ctx context.Context, event eventstore.Event, err error) {
	if b.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		observability.WarnContext(ctx, "Failed to create build event", logfields.Error(err))
		return
	}
	if err := b.store.Append(ctx, event); err != nil {
		observability.WarnContext(ctx, "Failed to record build event",
			slog.String("event_type", event.Type()),
			logfields.Error(err))
		return
	}
	if b.history != nil {
		b.history.Apply(event)
	}
}

func (b *Builder) publish(ctx context.Context, report *Report) {
	msg := notify.BuildCompleted{
		BuildID:     report.BuildID,
		Outcome:     string(report.Outcome),
		Site:        b.cfg.Site.Name,
		SiteURL:     b.cfg.Site.URL,
		Start:       report.Start,
		End:         report.End,
		Documents:   report.Documents,
		Posts:       report.Posts,
		Tags:        report.Tags,
		FeedEntries: report.FeedEntries,
		Fingerprint: report.Fingerprint,
	}
	if report.Error != nil {
		msg.Error = report.Error.Error()
	}
	if err := b.publisher.Publish(ctx, msg); err != nil {
		observability.WarnContext(ctx, "Failed to publish build notification", logfields.Error(err))
	}
}

// indexPath is the file whose presence shows a previous build's output
// is still in place.
func (b *Builder) indexPath() string {
	return filepath.Join(b.cfg.Paths.Output, b.cfg.Blog.Index.SaveAs)
}
