package blog

import (
	"sort"

	"git.home.luguber.info/inful/blogbuilder/internal/content"
)

// ExtractPosts returns the posts among documents, newest first. Posts
// created at the same instant keep their input order. documents is not
// modified.
func ExtractPosts(documents []content.Document) []*content.Post {
	posts := make([]*content.Post, 0, len(documents))
	for _, doc := range documents {
		if post, ok := doc.(*content.Post); ok && post != nil {
			posts = append(posts, post)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Created.After(posts[j].Created)
	})
	return posts
}
