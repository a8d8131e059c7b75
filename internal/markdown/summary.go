package markdown

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Summary extracts the plain text of the first non-empty paragraph of
// rendered HTML, collapsed to single spaces and cut to at most limit runes.
// An ellipsis marks truncation. limit <= 0 disables truncation.
func Summary(rendered string, limit int) string {
	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return ""
	}

	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "p" {
			if t := collapse(textContent(n)); t != "" {
				found = t
				return true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	if limit <= 0 || utf8.RuneCountInString(found) <= limit {
		return found
	}
	runes := []rune(found)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
