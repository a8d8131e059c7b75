package content

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/normalization"
	"git.home.luguber.info/inful/blogbuilder/internal/frontmatter"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/markdown"
)

// DefaultSummaryLength bounds Post.Summary in runes.
const DefaultSummaryLength = 280

// Posts live under a YYYY/MM/DD directory somewhere in their path.
var datePathPattern = regexp.MustCompile(`(?:^|/)(\d{4}/\d{2}/\d{2})/`)

var reservedFields = map[string]struct{}{
	"title": {}, "author": {}, "tags": {}, "created": {}, "updated": {}, "published": {},
	mdfp.FingerprintField: {},
}

// Loader reads Markdown sources below Root into documents.
type Loader struct {
	Root          string
	SiteURL       string
	Author        string // fallback when a file names no author
	Location      *time.Location
	SummaryLength int

	markdown *markdown.Renderer
}

// NewLoader creates a loader for the given content directory.
func NewLoader(root, siteURL, author string, loc *time.Location) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{
		Root:          root,
		SiteURL:       siteURL,
		Author:        author,
		Location:      loc,
		SummaryLength: DefaultSummaryLength,
		markdown:      markdown.NewRenderer(),
	}
}

// Load walks the content root in lexical order and parses every *.md file.
// Directories starting with "." or "_" are skipped, as are files whose
// frontmatter sets published: false.
func (l *Loader) Load() ([]Document, error) {
	info, err := os.Stat(l.Root)
	if err != nil || !info.IsDir() {
		return nil, errors.ContentError("content directory not found").
			WithCause(err).
			WithContext("path", l.Root).
			Build()
	}

	var files []string
	err = filepath.WalkDir(l.Root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			name := d.Name()
			if p != l.Root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), ".md") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "walk content directory").
			WithContext("path", l.Root).
			Build()
	}

	docs := make([]Document, 0, len(files))
	for _, file := range files {
		doc, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	slog.Debug("Loaded content", logfields.Path(l.Root), logfields.Documents(len(docs)))
	return docs, nil
}

// LoadFile parses a single source file. It returns nil, nil for
// unpublished files.
func (l *Loader) LoadFile(file string) (Document, error) {
	rel, err := filepath.Rel(l.Root, file)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryContent, "resolve content path").
			WithContext("path", file).
			Build()
	}
	rel = filepath.ToSlash(rel)

	info, err := os.Stat(file)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "stat content file").
			WithContext("path", file).
			Build()
	}
	// #nosec G304 -- file comes from walking the configured content root
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read content file").
			WithContext("path", file).
			Build()
	}

	fm, body, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, contentErr(err, "split frontmatter", rel)
	}
	fields, err := frontmatter.ParseYAML(fm)
	if err != nil {
		return nil, contentErr(err, "parse frontmatter", rel)
	}
	if published, ok := fields["published"].(bool); ok && !published {
		slog.Debug("Skipping unpublished document", logfields.Path(rel))
		return nil, nil
	}

	fingerprint, err := Fingerprint(fields, body)
	if err != nil {
		return nil, contentErr(err, "fingerprint document", rel)
	}

	title := stringField(fields, "title")
	if title == "" {
		if heading, rest := l.markdown.SplitTitle(body); heading != "" {
			title, body = heading, rest
		}
	}
	if title == "" {
		title = strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	}

	rendered, err := l.markdown.Render(body)
	if err != nil {
		return nil, contentErr(err, "render markdown", rel)
	}

	author := stringField(fields, "author")
	if author == "" {
		author = l.Author
	}
	url := urlFor(rel)
	meta := Meta{
		SourcePath:  rel,
		Title:       title,
		Author:      author,
		Content:     rendered,
		URL:         url,
		AbsURL:      normalization.JoinURL(l.SiteURL, url),
		Fingerprint: fingerprint,
		Params:      extraParams(fields),
	}

	match := datePathPattern.FindStringSubmatch(rel)
	if match == nil {
		return &Page{Meta: meta}, nil
	}

	created, err := time.ParseInLocation("2006/01/02", match[1], l.Location)
	if err != nil {
		return nil, contentErr(err, "invalid date in post path", rel)
	}
	if v, ok := fields["created"]; ok {
		if created, err = parseTime(v, l.Location); err != nil {
			return nil, contentErr(err, "invalid created timestamp", rel)
		}
	}
	updated := info.ModTime()
	if v, ok := fields["updated"]; ok {
		if updated, err = parseTime(v, l.Location); err != nil {
			return nil, contentErr(err, "invalid updated timestamp", rel)
		}
	}

	post := NewPost(meta, created, updated, tagsField(fields["tags"]), l.Location)
	post.Summary = markdown.Summary(rendered, l.SummaryLength)
	return post, nil
}

// urlFor maps "2024/01/03/hello.md" to "/2024/01/03/hello/" and
// "about/index.md" to "/about/".
func urlFor(rel string) string {
	p := strings.TrimSuffix(rel, path.Ext(rel))
	if path.Base(p) == "index" {
		p = path.Dir(p)
	}
	if p == "." || p == "" {
		return "/"
	}
	return "/" + p + "/"
}

func contentErr(err error, msg, rel string) error {
	return errors.WrapError(err, errors.CategoryContent, msg).
		UserAction().
		WithContext("path", rel).
		Build()
}

func extraParams(fields map[string]any) map[string]any {
	params := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, reserved := reservedFields[k]; !reserved {
			params[k] = v
		}
	}
	return params
}
