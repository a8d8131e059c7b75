// Package site writes one HTML page per document.
package site

import (
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

// PageFile is the file name written inside each document directory.
const PageFile = "index.html"

// Writer renders documents into OutputDir/<URL>/index.html.
type Writer struct {
	OutputDir string
	SiteName  string
	Renderer  templates.Renderer
	// Reserved holds slash-separated paths below OutputDir that another
	// stage writes. A document page landing on one is an error.
	Reserved []string
}

// WriteDocuments renders every document through the document template and
// returns the number of pages written.
func (w *Writer) WriteDocuments(documents []content.Document) (int, error) {
	reserved := make(map[string]struct{}, len(w.Reserved))
	for _, p := range w.Reserved {
		reserved[path.Clean(p)] = struct{}{}
	}

	written := 0
	for _, doc := range documents {
		meta := doc.Common()
		dir, err := w.dirFor(meta.URL)
		if err != nil {
			return written, err
		}
		page := path.Join(strings.Trim(meta.URL, "/"), PageFile)
		if _, taken := reserved[page]; taken {
			return written, errors.ContentError("document page collides with a generated blog file").
				WithContext("path", meta.SourcePath).
				WithContext("output", page).
				Build()
		}
		out, err := w.Renderer.Render(templates.DocumentTemplate, map[string]any{
			"document": doc,
			"sitename": w.SiteName,
		})
		if err != nil {
			return written, errors.WrapError(err, errors.CategoryRender, "render document").
				WithContext("template", templates.DocumentTemplate).
				WithContext("path", meta.SourcePath).
				Build()
		}
		if err := os.MkdirAll(dir, 0o755); err != nil { // #nosec G301 -- site output is world readable
			return written, errors.WrapError(err, errors.CategoryFileSystem, "create page directory").
				WithContext("path", dir).
				Build()
		}
		target := filepath.Join(dir, PageFile)
		if err := os.WriteFile(target, []byte(out), 0o644); err != nil { // #nosec G306 -- site output is world readable
			return written, errors.WrapError(err, errors.CategoryFileSystem, "write page").
				WithContext("path", target).
				Build()
		}
		slog.Debug("Wrote page", logfields.Path(target))
		written++
	}
	return written, nil
}

// dirFor maps a site-relative URL to a directory below OutputDir.
func (w *Writer) dirFor(url string) (string, error) {
	rel := filepath.FromSlash(strings.Trim(url, "/"))
	dir := filepath.Join(w.OutputDir, rel)
	check, err := filepath.Rel(w.OutputDir, dir)
	if err != nil || check == ".." || strings.HasPrefix(check, ".."+string(filepath.Separator)) {
		return "", errors.ContentError("document URL escapes the output directory").
			WithContext("path", url).
			Build()
	}
	return dir, nil
}
