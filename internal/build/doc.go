// Package build runs one complete site build: load the content, decide
// whether anything changed, write the document pages and the blog pages,
// then record the outcome in metrics, build history and notifications.
// The CLI build command and the watch daemon both go through Builder.Run.
package build
