package blog

import (
	"path/filepath"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/normalization"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/templates"
)

// TagGroup is the set of posts published under one tag page.
type TagGroup struct {
	Name    string // tag text as first seen
	Segment string // directory name below TagsOutput
	Posts   []*content.Post
}

// TagIndex groups posts by tag. Groups iterate in the order their tag first
// appears in the post list, and each group keeps the post list order.
type TagIndex struct {
	groups    []*TagGroup
	bySegment map[string]*TagGroup
	skipped   []string
}

// NewTagIndex groups posts by tag. Tags that map to the same path segment
// share a group, and a post appears at most once per group. Tags with no
// usable segment are recorded in Skipped.
func NewTagIndex(posts []*content.Post) *TagIndex {
	ti := &TagIndex{bySegment: make(map[string]*TagGroup)}
	for _, post := range posts {
		for _, tag := range post.Tags {
			segment, ok := normalization.PathSegment(tag)
			if !ok {
				ti.skipped = append(ti.skipped, tag)
				continue
			}
			group, exists := ti.bySegment[segment]
			if !exists {
				group = &TagGroup{Name: tag, Segment: segment}
				ti.bySegment[segment] = group
				ti.groups = append(ti.groups, group)
			}
			if n := len(group.Posts); n > 0 && group.Posts[n-1] == post {
				continue
			}
			group.Posts = append(group.Posts, post)
		}
	}
	return ti
}

// Groups returns the tag groups in first-appearance order.
func (ti *TagIndex) Groups() []*TagGroup { return ti.groups }

// Len returns the number of tag groups.
func (ti *TagIndex) Len() int { return len(ti.groups) }

// postsFor returns the posts carrying tag, or nil.
func (ti *TagIndex) postsFor(tag string) []*content.Post {
	segment, ok := normalization.PathSegment(tag)
	if !ok {
		return nil
	}
	if group, exists := ti.bySegment[segment]; exists {
		return group.Posts
	}
	return nil
}

// Skipped lists tags that could not be turned into a path segment.
func (ti *TagIndex) Skipped() []string { return ti.skipped }

// WriteTagPages renders one list page per tag into
// OutputDir/TagsOutput/<tag>/TagsSaveAs and returns the number of pages
// written. The first failing tag aborts the rest.
func (g *Generator) WriteTagPages(posts []*content.Post) (int, error) {
	index := NewTagIndex(posts)
	for _, tag := range index.Skipped() {
		g.logger.Warn("Skipping tag without a usable path", logfields.Tag(tag))
	}

	written := 0
	for _, group := range index.Groups() {
		dir := g.outputPath(g.cfg.TagsOutput, group.Segment)
		if err := mkdirAll(dir); err != nil {
			return written, err
		}
		out, err := g.render(templates.ListTemplate, map[string]any{
			"posts":    group.Posts,
			"sitename": g.cfg.SiteName,
			"tag":      group.Name,
		})
		if err != nil {
			return written, err
		}
		if err := g.writeFile(filepath.Join(dir, g.cfg.TagsSaveAs), out); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
