package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/normalization"
)

// LogLevelEnv overrides the log level when --verbose is not given.
const LogLevelEnv = "BLOGBUILDER_LOG_LEVEL"

var logLevels = normalization.NewNormalizer(map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}, slog.LevelInfo)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer // user-facing output
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"blogbuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the site once"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild on changes until interrupted"`
	History HistoryCmd `cmd:"" help:"Show recent builds"`

	closeLog func() `kong:"-"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	handler, closeLog, err := newLogHandler(logSinks{
		Level:     parseLogLevel(c.Verbose),
		Console:   os.Stderr,
		File:      os.Getenv(LogFileEnv),
		SentryDSN: os.Getenv(SentryDSNEnv),
	})
	if err != nil {
		return err
	}
	c.closeLog = closeLog
	slog.SetDefault(slog.New(handler))
	return nil
}

// CloseLogging flushes and closes the log sinks opened by AfterApply.
func (c *CLI) CloseLogging() {
	if c.closeLog != nil {
		c.closeLog()
		c.closeLog = nil
	}
}

// parseLogLevel returns debug for --verbose, else the level named by
// BLOGBUILDER_LOG_LEVEL, else info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return logLevels.Normalize(os.Getenv(LogLevelEnv))
}

func loadConfig(root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	slog.Debug("Configuration loaded", slog.String("path", root.Config))
	return cfg, nil
}
