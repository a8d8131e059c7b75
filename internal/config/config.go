// Package config loads the blogbuilder YAML configuration, applies defaults
// and validates it before any build work starts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/blog"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/retry"
)

// DefaultPath is the configuration file looked up when --config is not given.
const DefaultPath = "blogbuilder.yaml"

// Config represents the application configuration.
type Config struct {
	Site   SiteConfig   `yaml:"site"`
	Paths  PathsConfig  `yaml:"paths"`
	Blog   BlogConfig   `yaml:"blog"`
	Build  BuildConfig  `yaml:"build"`
	Events EventsConfig `yaml:"events"`
	Watch  WatchConfig  `yaml:"watch"`
	Deploy DeployConfig `yaml:"deploy,omitempty"`

	location *time.Location
}

// SiteConfig holds site-wide identity settings.
type SiteConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Author   string `yaml:"author,omitempty"`   // default author for posts without one
	Timezone string `yaml:"timezone,omitempty"` // IANA zone used for local timestamps
}

// PathsConfig locates sources and output.
type PathsConfig struct {
	Content   string `yaml:"content"`
	Templates string `yaml:"templates,omitempty"` // optional override directory
	Output    string `yaml:"output"`
}

// BlogConfig mirrors the generators.blog.* settings.
type BlogConfig struct {
	Index SaveAsConfig `yaml:"index"`
	Tags  TagsConfig   `yaml:"tags"`
	Feed  FeedConfig   `yaml:"feed"`
}

// SaveAsConfig names an output file relative to the output directory.
type SaveAsConfig struct {
	SaveAs string `yaml:"save_as"`
}

// TagsConfig configures per-tag listing pages.
type TagsConfig struct {
	Output string `yaml:"output"`
	SaveAs string `yaml:"save_as"`
}

// FeedConfig configures the Atom feed.
type FeedConfig struct {
	SaveAs      string `yaml:"save_as"`
	PostsNumber int    `yaml:"posts_number"`
}

// BuildConfig holds orchestration options around the generator.
type BuildConfig struct {
	SkipUnchanged bool   `yaml:"skip_unchanged"`
	History       string `yaml:"history,omitempty"`      // sqlite path; empty disables history
	MetricsFile   string `yaml:"metrics_file,omitempty"` // Prometheus textfile; empty disables export
}

// EventsConfig configures build notifications on NATS.
type EventsConfig struct {
	NATSURL string      `yaml:"nats_url,omitempty"`
	Subject string      `yaml:"subject,omitempty"`
	Retry   RetryConfig `yaml:"retry,omitempty"`
}

// RetryConfig tunes publish retries. An empty section keeps the defaults.
type RetryConfig struct {
	Backoff    string        `yaml:"backoff,omitempty"` // fixed|linear|exponential
	Initial    time.Duration `yaml:"initial,omitempty"`
	Max        time.Duration `yaml:"max,omitempty"`
	MaxRetries int           `yaml:"max_retries,omitempty"`
}

// Policy returns the retry policy for event publishing.
func (r RetryConfig) Policy() retry.Policy {
	if r == (RetryConfig{}) {
		return retry.DefaultPolicy()
	}
	mode, _ := retry.ParseMode(r.Backoff)
	return retry.NewPolicy(mode, r.Initial, r.Max, r.MaxRetries)
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce    time.Duration `yaml:"debounce,omitempty"`
	Interval    time.Duration `yaml:"interval,omitempty"` // 0 disables periodic rebuilds
	Cron        string        `yaml:"cron,omitempty"`     // optional cron schedule for rebuilds
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
}

// DeployConfig configures publishing the output after a successful build.
type DeployConfig struct {
	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config targets an S3-compatible bucket (AWS, MinIO, R2, ...).
// Credentials fall back to the AWS default chain when unset.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region,omitempty"`
	Prefix       string `yaml:"prefix,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	AccessKey    string `yaml:"access_key,omitempty"`
	SecretKey    string `yaml:"secret_key,omitempty"`
	CacheControl string `yaml:"cache_control,omitempty"`
}

// Enabled reports whether a deploy target is configured.
func (d DeployConfig) Enabled() bool {
	return d.S3.Bucket != ""
}

// Load reads, expands, defaults and validates the configuration at path.
// Environment variables from .env files are loaded first and may be
// referenced as ${VAR} in the YAML.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read configuration file").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse builds a validated Config from raw YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "parse configuration").
			Fatal().
			Build()
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location returns the time zone used for local post timestamps.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Generator projects the settings the blog generator consumes.
func (c *Config) Generator() blog.Config {
	return blog.Config{
		OutputDir:       c.Paths.Output,
		IndexSaveAs:     c.Blog.Index.SaveAs,
		TagsOutput:      c.Blog.Tags.Output,
		TagsSaveAs:      c.Blog.Tags.SaveAs,
		FeedSaveAs:      c.Blog.Feed.SaveAs,
		FeedPostsNumber: c.Blog.Feed.PostsNumber,
		SiteName:        c.Site.Name,
		SiteURL:         c.Site.URL,
	}
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ValidationError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	example := Config{
		Site: SiteConfig{
			Name:     "My Blog",
			URL:      "https://example.com/",
			Author:   "Jane Doe",
			Timezone: "UTC",
		},
		Paths: PathsConfig{Content: "content", Output: "_build"},
		Build: BuildConfig{History: ".blogbuilder/history.db"},
	}
	applyDefaults(&example)

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	// #nosec G306 -- configuration is not secret
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
