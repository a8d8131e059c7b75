// Package markdown converts post bodies to HTML and derives the title and
// plain-text summary that listing templates show.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

// Renderer wraps a configured goldmark instance. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer returns a renderer with GitHub flavoured extensions enabled.
// Raw HTML in sources is passed through; authors own their content.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Footnote),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
	}
}

// Render converts a Markdown body (frontmatter already removed) to HTML.
func (r *Renderer) Render(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// SplitTitle returns the text of a leading level-1 heading and the body
// without it. When the body does not open with such a heading, title is
// empty and body is returned unchanged.
func (r *Renderer) SplitTitle(body []byte) (title string, rest []byte) {
	root := r.md.Parser().Parse(text.NewReader(body))
	first := root.FirstChild()
	heading, ok := first.(*gmast.Heading)
	if !ok || heading.Level != 1 || heading.Lines().Len() == 0 {
		return "", body
	}

	lines := heading.Lines()
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(bytes.TrimSpace(seg.Value(body)))
	}

	end := lines.At(lines.Len() - 1).Stop
	if end == 0 || body[end-1] != '\n' {
		end = skipLine(body, end)
	}
	// Setext headings carry their "====" underline on the next line.
	if next := skipLine(body, end); isSetextUnderline(body[end:next]) {
		end = next
	}
	return buf.String(), body[end:]
}

func skipLine(src []byte, from int) int {
	if from >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[from:], '\n'); i >= 0 {
		return from + i + 1
	}
	return len(src)
}

func isSetextUnderline(line []byte) bool {
	line = bytes.TrimSpace(line)
	return len(line) > 0 && len(bytes.Trim(line, "=")) == 0
}
