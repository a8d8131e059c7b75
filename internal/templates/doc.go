// Package templates renders site pages with html/template. Default
// layouts are embedded and can be replaced per file from a directory.
package templates
