package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/blogbuilder/internal/blog"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/version"
)

// fingerprintSettings is everything outside the content that shapes the
// generated site.
type fingerprintSettings struct {
	Version   string            `yaml:"version"`
	Generator blog.Config       `yaml:"generator"`
	Author    string            `yaml:"author"`
	Timezone  string            `yaml:"timezone"`
	Templates map[string]string `yaml:"templates,omitempty"`
}

// SiteFingerprint hashes the settings, the template overrides and every
// document fingerprint. Two builds with the same site fingerprint produce
// the same output apart from the feed timestamp.
func SiteFingerprint(cfg *config.Config, documents []content.Document) (string, error) {
	settings := fingerprintSettings{
		Version:   version.Version,
		Generator: cfg.Generator(),
		Author:    cfg.Site.Author,
		Timezone:  cfg.Site.Timezone,
	}
	templates, err := templateFingerprints(cfg.Paths.Templates)
	if err != nil {
		return "", err
	}
	settings.Templates = templates

	head, err := yaml.Marshal(settings)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryInternal, "serialize fingerprint settings").Build()
	}

	lines := make([]string, 0, len(documents))
	for _, doc := range documents {
		meta := doc.Common()
		updated := "-"
		if post, ok := doc.(*content.Post); ok {
			updated = post.UpdatedLocal.UTC().Format(time.RFC3339Nano)
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", meta.SourcePath, meta.Fingerprint, updated))
	}
	sort.Strings(lines)

	return mdfp.CalculateFingerprintFromParts(string(head), strings.Join(lines, "\n")), nil
}

func templateFingerprints(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "list template overrides").
			WithContext("path", dir).
			Build()
	}
	out := make(map[string]string, len(files))
	for _, file := range files {
		// #nosec G304 -- template overrides come from the configured directory
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "read template override").
				WithContext("path", file).
				Build()
		}
		out[filepath.Base(file)] = mdfp.CalculateFingerprintFromParts("", string(data))
	}
	return out, nil
}
