// Package content defines the parsed document model and loads it from a
// directory of Markdown sources.
package content

import (
	"strings"
	"time"
)

// Kind discriminates the document variants.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// Document is a parsed source file. The set of implementations is closed:
// *Post and *Page.
type Document interface {
	Kind() Kind
	Common() *Meta
	sealed()
}

// Meta holds the attributes every document carries.
type Meta struct {
	SourcePath  string // slash-separated, relative to the content root
	Title       string
	Author      string
	Content     string // rendered HTML
	URL         string // site-relative, always starts and ends with "/"
	AbsURL      string
	Fingerprint string
	Params      map[string]any // remaining frontmatter keys
}

// Page is any non-post document (about pages, landing pages).
type Page struct {
	Meta
}

func (*Page) Kind() Kind { return KindPage }
func (p *Page) Common() *Meta { return &p.Meta }
func (*Page) sealed() {}

// Post is a dated blog entry.
type Post struct {
	Meta
	Slug         string
	Created      time.Time // ordering key
	CreatedLocal time.Time // Created in the site time zone
	UpdatedLocal time.Time
	Tags         []string
	Summary      string
}

func (*Post) Kind() Kind { return KindPost }
func (p *Post) Common() *Meta { return &p.Meta }
func (*Post) sealed() {}

// NewPost builds a post, resolving optional fields up front: tags are
// trimmed and deduplicated (first occurrence wins, empty entries dropped)
// and local timestamps are derived from the given zone. An updated time
// before created is clamped to created.
func NewPost(meta Meta, created, updated time.Time, tags []string, loc *time.Location) *Post {
	if loc == nil {
		loc = time.UTC
	}
	if updated.IsZero() || updated.Before(created) {
		updated = created
	}
	return &Post{
		Meta:         meta,
		Slug:         slugFromURL(meta.URL),
		Created:      created,
		CreatedLocal: created.In(loc),
		UpdatedLocal: updated.In(loc),
		Tags:         cleanTags(tags),
	}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func slugFromURL(u string) string {
	trimmed := strings.Trim(u, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}
