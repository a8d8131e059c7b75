package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Template names the blog pipeline renders.
const (
	ListTemplate     = "document-list.html"
	DocumentTemplate = "document.html"
)

//go:embed defaults/*.html
var defaultTemplates embed.FS

// Renderer renders a named template with a data map.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// HTMLRenderer renders html/template files. The embedded defaults are
// loaded first; any *.html file in the override directory replaces the
// template of the same name.
type HTMLRenderer struct {
	set *template.Template
}

// NewHTMLRenderer parses the default templates plus overrides from dir.
// An empty dir uses the defaults only.
func NewHTMLRenderer(dir string) (*HTMLRenderer, error) {
	set := template.New("").Funcs(Funcs()).Option("missingkey=error")

	defaults, err := fs.Glob(defaultTemplates, "defaults/*.html")
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryInternal, "list default templates").Build()
	}
	for _, name := range defaults {
		data, err := defaultTemplates.ReadFile(name)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryInternal, "read default template").
				WithContext("template", name).
				Build()
		}
		if err := parseInto(set, filepath.Base(name), string(data)); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		if err := loadOverrides(set, dir); err != nil {
			return nil, err
		}
	}
	return &HTMLRenderer{set: set}, nil
}

func loadOverrides(set *template.Template, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return errors.ConfigError("template directory not found").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "list template overrides").
			WithContext("path", dir).
			Build()
	}
	sort.Strings(files)
	for _, file := range files {
		// #nosec G304 -- file is a glob match inside the configured template dir
		data, err := os.ReadFile(file)
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "read template override").
				WithContext("path", file).
				Build()
		}
		name := filepath.Base(file)
		if err := parseInto(set, name, string(data)); err != nil {
			return err
		}
		slog.Debug("Loaded template override", logfields.Template(name), logfields.Path(file))
	}
	return nil
}

func parseInto(set *template.Template, name, text string) error {
	if _, err := set.New(name).Parse(text); err != nil {
		return errors.WrapError(err, errors.CategoryRender, "parse template").
			WithContext("template", name).
			Build()
	}
	return nil
}

// Render executes the named template.
func (r *HTMLRenderer) Render(name string, data map[string]any) (string, error) {
	tpl := r.set.Lookup(name)
	if tpl == nil {
		return "", errors.RenderError("unknown template").
			WithContext("template", name).
			Build()
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", errors.WrapError(err, errors.CategoryRender, "render template").
			WithContext("template", name).
			Build()
	}
	return buf.String(), nil
}

// Funcs returns the helper functions available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"isoformat": ISOFormat,
		"date": func(layout string, t time.Time) string {
			return t.Format(layout)
		},
		"safeHTML": func(s string) template.HTML {
			// #nosec G203 -- document bodies are rendered by the markdown pipeline
			return template.HTML(s)
		},
		"dict": dict,
	}
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// ISOFormat formats t like "2024-01-03T10:00:00+01:00", adding microseconds
// only when they are non-zero.
func ISOFormat(t time.Time) string {
	s := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / int(time.Microsecond); us != 0 {
		s += fmt.Sprintf(".%06d", us)
	}
	return s + t.Format("-07:00")
}
