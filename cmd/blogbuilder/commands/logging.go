package commands

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/version"
)

const (
	// LogFileEnv names a file that receives a JSON copy of every log record.
	LogFileEnv = "BLOGBUILDER_LOG_FILE"
	// SentryDSNEnv enables error reporting to Sentry.
	SentryDSNEnv = "SENTRY_DSN"
)

const sentryFlushTimeout = 2 * time.Second

// logSinks describes where log records go.
type logSinks struct {
	Level     slog.Level
	Console   io.Writer
	File      string
	SentryDSN string
}

// newLogHandler fans records out to the console, the optional JSON log
// file and, for errors, Sentry. The returned func releases the sinks.
func newLogHandler(sinks logSinks) (slog.Handler, func(), error) {
	opts := &slog.HandlerOptions{Level: sinks.Level}
	handlers := []slog.Handler{slog.NewTextHandler(sinks.Console, opts)}
	var closers []func()

	if sinks.File != "" {
		// #nosec G304 -- path comes from the operator's environment
		f, err := os.OpenFile(sinks.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, errors.WrapError(err, errors.CategoryConfig, "open log file").
				WithContext("path", sinks.File).
				Build()
		}
		handlers = append(handlers, slog.NewJSONHandler(f, opts))
		closers = append(closers, func() { _ = f.Close() })
	}

	if sinks.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:     sinks.SentryDSN,
			Release: "blogbuilder@" + version.Version,
		})
		if err != nil {
			return nil, nil, errors.WrapError(err, errors.CategoryConfig, "initialize sentry").Build()
		}
		handlers = append(handlers, slogsentry.Option{Level: slog.LevelError}.NewSentryHandler())
		closers = append(closers, func() { sentry.Flush(sentryFlushTimeout) })
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if len(handlers) == 1 {
		return handlers[0], closeAll, nil
	}
	return slogmulti.Fanout(handlers...), closeAll, nil
}
