package blog

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

// Config holds the settings the generator reads. Output paths are relative
// to OutputDir.
type Config struct {
	OutputDir       string
	IndexSaveAs     string
	TagsOutput      string
	TagsSaveAs      string
	FeedSaveAs      string
	FeedPostsNumber int
	SiteName        string
	SiteURL         string
}

// Result summarizes one generation.
type Result struct {
	Posts       int
	Tags        int
	FeedEntries int
}

// Generator writes the index, tag pages and feed for a set of documents.
type Generator struct {
	cfg      Config
	renderer templates.Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger used for per-file debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock replaces the clock used for the feed timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates a generator that renders list pages through renderer.
func New(cfg Config, renderer templates.Renderer, opts ...Option) *Generator {
	g := &Generator{
		cfg:      cfg,
		renderer: renderer,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate selects the posts from documents and writes the index, the tag
// pages and the feed, in that order. The first failure stops generation.
func (g *Generator) Generate(documents []content.Document) (*Result, error) {
	posts := ExtractPosts(documents)
	g.logger.Debug("Selected posts", logfields.Documents(len(documents)), logfields.Posts(len(posts)))

	if err := g.WriteIndex(posts); err != nil {
		return nil, err
	}
	tags, err := g.WriteTagPages(posts)
	if err != nil {
		return nil, err
	}
	entries, err := g.WriteFeed(posts)
	if err != nil {
		return nil, err
	}
	return &Result{Posts: len(posts), Tags: tags, FeedEntries: entries}, nil
}

// OutputPaths lists the files a generator with this config writes for
// posts, slash-separated and relative to OutputDir.
func (c Config) OutputPaths(posts []*content.Post) []string {
	paths := []string{slashPath(c.IndexSaveAs)}
	for _, group := range NewTagIndex(posts).Groups() {
		paths = append(paths, slashPath(c.TagsOutput, group.Segment, c.TagsSaveAs))
	}
	return append(paths, slashPath(c.FeedSaveAs))
}

func slashPath(elem ...string) string {
	return filepath.ToSlash(filepath.Join(elem...))
}

func (g *Generator) render(name string, data map[string]any) (string, error) {
	out, err := g.renderer.Render(name, data)
	if err != nil {
		if _, ok := errors.AsClassified(err); ok {
			return "", err
		}
		return "", errors.WrapError(err, errors.CategoryRender, "render template").
			WithContext("template", name).
			Build()
	}
	return out, nil
}

// writeFile writes data to path, replacing any existing file. The parent
// directory must exist.
func (g *Generator) writeFile(path, data string) error {
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil { // #nosec G306 -- site output is world readable
		return errors.WrapError(err, errors.CategoryFileSystem, "write output file").
			WithContext("path", path).
			Build()
	}
	g.logger.Debug("Wrote file", logfields.Path(path))
	return nil
}

func mkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 -- site output is world readable
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", dir).
			Build()
	}
	return nil
}

func (g *Generator) outputPath(rel ...string) string {
	return filepath.Join(append([]string{g.cfg.OutputDir}, rel...)...)
}
