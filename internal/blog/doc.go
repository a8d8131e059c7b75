// Package blog derives the blog artifacts of a site from its documents: the
// index page listing every post, one listing page per tag, and an Atom feed
// of the most recent posts.
//
// All three outputs are computed from a single list of posts sorted by
// creation time, newest first. Nothing is cached between generations.
package blog
