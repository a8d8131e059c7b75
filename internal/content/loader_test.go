package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func writeFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoader_LoadClassifiesPostsAndPages(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024/01/03/hello.md", "---\ntitle: Hello\ntags: [go, blog]\n---\nFirst paragraph.\n")
	writeFile(t, root, "about/index.md", "# About me\n\nSome text.\n")
	writeFile(t, root, "_drafts/2024/02/01/draft.md", "# Draft\n")
	writeFile(t, root, "notes.txt", "ignored")

	l := NewLoader(root, "https://example.com/blog", "Jane", time.UTC)
	docs, err := l.Load()
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// lexical walk order: "2024/..." before "about/..."
	post, ok := docs[0].(*Post)
	require.True(t, ok)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "Jane", post.Author)
	assert.Equal(t, "/2024/01/03/hello/", post.URL)
	assert.Equal(t, "https://example.com/blog/2024/01/03/hello/", post.AbsURL)
	assert.Equal(t, "hello", post.Slug)
	assert.Equal(t, []string{"go", "blog"}, post.Tags)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), post.Created)
	assert.Equal(t, "First paragraph.", post.Summary)
	assert.NotEmpty(t, post.Fingerprint)

	page, ok := docs[1].(*Page)
	require.True(t, ok)
	assert.Equal(t, KindPage, page.Kind())
	assert.Equal(t, "About me", page.Title)
	assert.Equal(t, "/about/", page.URL)
	assert.NotContains(t, page.Content, "<h1")
}

func TestLoader_FrontmatterOverrides(t *testing.T) {
	root := t.TempDir()
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	writeFile(t, root, "2024/05/01/post.md", `---
author: Someone Else
created: 2024-05-01 10:30:00
updated: 2024-05-02T08:00:00+00:00
tags: "a, b, a"
series: intro
---
Body.
`)
	l := NewLoader(root, "https://example.com/", "Jane", berlin)
	docs, err := l.Load()
	require.NoError(t, err)
	require.Len(t, docs, 1)

	post := docs[0].(*Post)
	assert.Equal(t, "Someone Else", post.Author)
	assert.Equal(t, "post", post.Title)
	assert.True(t, post.Created.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, berlin)))
	assert.Equal(t, berlin, post.CreatedLocal.Location())
	assert.True(t, post.UpdatedLocal.Equal(time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{"a", "b"}, post.Tags)
	assert.Equal(t, map[string]any{"series": "intro"}, post.Params)
}

func TestLoader_SkipsUnpublished(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024/01/01/a.md", "---\npublished: false\n---\nHidden\n")
	writeFile(t, root, "2024/01/02/b.md", "Visible\n")

	docs, err := NewLoader(root, "https://example.com/", "", nil).Load()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2024/01/02/b.md", docs[0].Common().SourcePath)
}

func TestLoader_Errors(t *testing.T) {
	t.Run("missing root", func(t *testing.T) {
		_, err := NewLoader(filepath.Join(t.TempDir(), "nope"), "https://example.com/", "", nil).Load()
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryContent))
	})

	t.Run("unterminated frontmatter", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "broken.md", "---\ntitle: x\n")
		_, err := NewLoader(root, "https://example.com/", "", nil).Load()
		require.Error(t, err)
		ce, ok := errors.AsClassified(err)
		require.True(t, ok)
		assert.Equal(t, errors.CategoryContent, ce.Category())
		p, _ := ce.Context().GetString("path")
		assert.Equal(t, "broken.md", p)
	})

	t.Run("bad created timestamp", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "2024/01/01/a.md", "---\ncreated: yesterday\n---\nx\n")
		_, err := NewLoader(root, "https://example.com/", "", nil).Load()
		require.Error(t, err)
		assert.True(t, errors.HasCategory(err, errors.CategoryContent))
	})
}

func TestURLFor(t *testing.T) {
	cases := map[string]string{
		"index.md":            "/",
		"about.md":            "/about/",
		"about/index.md":      "/about/",
		"2024/01/03/hello.md": "/2024/01/03/hello/",
	}
	for in, want := range cases {
		assert.Equal(t, want, urlFor(in), in)
	}
}

func TestNewPost_ClampsAndCleans(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := NewPost(Meta{URL: "/2024/03/01/x/"}, created, created.Add(-time.Hour), []string{" go ", "", "go", "rust"}, nil)
	assert.Equal(t, created, p.UpdatedLocal)
	assert.Equal(t, []string{"go", "rust"}, p.Tags)
	assert.Equal(t, "x", p.Slug)

	empty := NewPost(Meta{}, created, time.Time{}, nil, nil)
	assert.NotNil(t, empty.Tags)
	assert.Empty(t, empty.Tags)
}
