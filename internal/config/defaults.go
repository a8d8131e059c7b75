package config

import "time"

// Defaults for settings left out of the configuration file.
const (
	defaultSiteName        = "Blog"
	defaultTimezone        = "UTC"
	defaultContentDir      = "content"
	defaultOutputDir       = "_build"
	defaultIndexSaveAs     = "index.html"
	defaultTagsOutput      = "tags"
	defaultTagsSaveAs      = "index.html"
	defaultFeedSaveAs      = "feed.atom"
	defaultFeedPostsNumber = 5
	defaultEventsSubject   = "blogbuilder.builds"
	defaultWatchDebounce   = 500 * time.Millisecond
	defaultDeployRegion    = "us-east-1"
)

// applyDefaults fills zero values. An explicit posts_number of 0 is treated
// as omitted; negative values are left for validation to reject.
func applyDefaults(cfg *Config) {
	if cfg.Site.Name == "" {
		cfg.Site.Name = defaultSiteName
	}
	if cfg.Site.Timezone == "" {
		cfg.Site.Timezone = defaultTimezone
	}
	if cfg.Paths.Content == "" {
		cfg.Paths.Content = defaultContentDir
	}
	if cfg.Paths.Output == "" {
		cfg.Paths.Output = defaultOutputDir
	}
	if cfg.Blog.Index.SaveAs == "" {
		cfg.Blog.Index.SaveAs = defaultIndexSaveAs
	}
	if cfg.Blog.Tags.Output == "" {
		cfg.Blog.Tags.Output = defaultTagsOutput
	}
	if cfg.Blog.Tags.SaveAs == "" {
		cfg.Blog.Tags.SaveAs = defaultTagsSaveAs
	}
	if cfg.Blog.Feed.SaveAs == "" {
		cfg.Blog.Feed.SaveAs = defaultFeedSaveAs
	}
	if cfg.Blog.Feed.PostsNumber == 0 {
		cfg.Blog.Feed.PostsNumber = defaultFeedPostsNumber
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = defaultEventsSubject
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = defaultWatchDebounce
	}
	if cfg.Deploy.Enabled() && cfg.Deploy.S3.Region == "" {
		cfg.Deploy.S3.Region = defaultDeployRegion
	}
}
