package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyStage      = "stage"
	KeyPath       = "path"
	KeyTag        = "tag"
	KeyPosts      = "posts"
	KeyDocuments  = "documents"
	KeyTemplate   = "template"
	KeyDurationMS = "duration_ms"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Tag(t string) slog.Attr           { return slog.String(KeyTag, t) }
func Posts(n int) slog.Attr            { return slog.Int(KeyPosts, n) }
func Documents(n int) slog.Attr        { return slog.Int(KeyDocuments, n) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
