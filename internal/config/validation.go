package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/retry"
)

// Validate checks a defaulted configuration and resolves the site time zone.
func Validate(cfg *Config) error {
	if err := validateSite(cfg); err != nil {
		return err
	}
	if err := validateBlog(cfg); err != nil {
		return err
	}
	if cfg.Watch.Debounce < 0 || cfg.Watch.Interval < 0 {
		return errors.ConfigError("watch durations must not be negative").Build()
	}
	if cfg.Events.NATSURL != "" {
		if _, err := url.Parse(cfg.Events.NATSURL); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid events.nats_url").Build()
		}
	}
	if _, err := retry.ParseMode(cfg.Events.Retry.Backoff); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid events.retry.backoff").Build()
	}
	if r := cfg.Events.Retry; r.Initial < 0 || r.Max < 0 || r.MaxRetries < 0 {
		return errors.ConfigError("events.retry values must not be negative").Build()
	}
	return validateDeploy(cfg)
}

func validateDeploy(cfg *Config) error {
	s3 := cfg.Deploy.S3
	if !cfg.Deploy.Enabled() {
		if s3 != (S3Config{}) {
			return errors.ConfigError("deploy.s3.bucket is required").Build()
		}
		return nil
	}
	if (s3.AccessKey == "") != (s3.SecretKey == "") {
		return errors.ConfigError("deploy.s3.access_key and deploy.s3.secret_key must be set together").Build()
	}
	if s3.Endpoint != "" {
		u, err := url.Parse(s3.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.ConfigError("deploy.s3.endpoint must be an absolute URL").
				WithContext("endpoint", s3.Endpoint).
				Build()
		}
	}
	for _, part := range strings.Split(s3.Prefix, "/") {
		if part == ".." {
			return errors.ConfigError("deploy.s3.prefix must not contain '..'").
				WithContext("prefix", s3.Prefix).
				Build()
		}
	}
	return nil
}

func validateSite(cfg *Config) error {
	if strings.TrimSpace(cfg.Site.URL) == "" {
		return errors.ConfigError("site.url is required").Build()
	}
	u, err := url.Parse(cfg.Site.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigError("site.url must be an absolute URL").
			WithContext("url", cfg.Site.URL).
			Build()
	}
	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "unknown site.timezone").
			WithContext("timezone", cfg.Site.Timezone).
			Build()
	}
	cfg.location = loc
	return nil
}

func validateBlog(cfg *Config) error {
	if cfg.Blog.Feed.PostsNumber < 0 {
		return errors.ConfigError("blog.feed.posts_number must be positive").
			WithContext("posts_number", cfg.Blog.Feed.PostsNumber).
			Build()
	}
	relative := map[string]string{
		"blog.index.save_as": cfg.Blog.Index.SaveAs,
		"blog.tags.output":   cfg.Blog.Tags.Output,
		"blog.tags.save_as":  cfg.Blog.Tags.SaveAs,
		"blog.feed.save_as":  cfg.Blog.Feed.SaveAs,
	}
	for key, value := range relative {
		// A leading slash is read as "relative to the output root".
		clean := filepath.Clean(strings.TrimLeft(value, "/"))
		if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
			return errors.ConfigError("path must stay inside the output directory").
				WithContext("key", key).
				WithContext("path", value).
				Build()
		}
	}
	return nil
}
