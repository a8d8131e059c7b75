package blog

import (
	"bytes"
	_ "embed"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/normalization"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

const feedTemplateName = "feed.atom"

//go:embed feed.atom.tmpl
var feedTemplateText string

var feedTemplate = template.Must(template.New(feedTemplateName).
	Funcs(template.FuncMap{"isoformat": templates.ISOFormat, "xml": xmlText}).
	Option("missingkey=error").
	Parse(feedTemplateText))

// xmlText escapes s for XML character data and drops characters XML 1.0
// does not allow.
func xmlText(s string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
	return template.HTMLEscapeString(clean)
}

// Credentials describe the feed itself.
type Credentials struct {
	SiteName    string
	SiteURLAlt  string // normalized site URL
	SiteURLSelf string // SiteURLAlt plus the feed path
	Date        time.Time
}

// Updated renders Date as a UTC timestamp with a literal "Z".
func (c Credentials) Updated() string {
	return c.Date.UTC().Format("2006-01-02T15:04:05") + "Z"
}

// NewCredentials computes the feed credentials at the given instant. The
// date is converted to UTC and truncated to whole seconds.
func NewCredentials(cfg Config, now time.Time) Credentials {
	alt := normalization.URL(cfg.SiteURL)
	return Credentials{
		SiteName:    cfg.SiteName,
		SiteURLAlt:  alt,
		SiteURLSelf: normalization.JoinURL(alt, filepath.ToSlash(cfg.FeedSaveAs)),
		Date:        now.UTC().Truncate(time.Second),
	}
}

// WriteFeed renders the FeedPostsNumber most recent posts as an Atom feed
// into OutputDir/FeedSaveAs, creating its directory. It returns the number
// of entries written. A non-positive FeedPostsNumber yields a feed without
// entries.
func (g *Generator) WriteFeed(posts []*content.Post) (int, error) {
	n := g.cfg.FeedPostsNumber
	if n < 0 {
		n = 0
	}
	if n > len(posts) {
		n = len(posts)
	}
	entries := posts[:n]

	var buf bytes.Buffer
	err := feedTemplate.Execute(&buf, map[string]any{
		"documents":   entries,
		"credentials": NewCredentials(g.cfg, g.now()),
	})
	if err != nil {
		return 0, errors.WrapError(err, errors.CategoryRender, "render feed").
			WithContext("template", feedTemplateName).
			Build()
	}

	path := g.outputPath(g.cfg.FeedSaveAs)
	if err := mkdirAll(filepath.Dir(path)); err != nil {
		return 0, err
	}
	if err := g.writeFile(path, buf.String()); err != nil {
		return 0, err
	}
	return n, nil
}
