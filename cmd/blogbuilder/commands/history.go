package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

var statusColors = map[string]lipgloss.Color{
	eventstore.StatusSuccess:  lipgloss.Color("#4CAF50"),
	eventstore.StatusSkipped:  lipgloss.Color("#999999"),
	eventstore.StatusFailed:   lipgloss.Color("#FF6B6B"),
	eventstore.StatusCanceled: lipgloss.Color("#F7B801"),
	eventstore.StatusRunning:  lipgloss.Color("#5B8DEF"),
}

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"10"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if cfg.Build.History == "" {
		return errors.ConfigError("build history is disabled (set build.history)").Build()
	}

	store, history, err := openHistory(context.Background(), cfg.Build.History)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	builds := history.GetHistory(h.Limit)
	out := g.out()
	if len(builds) == 0 {
		_, _ = fmt.Fprintln(out, "No builds recorded")
		return nil
	}

	return printHistory(out, builds)
}

// printHistory writes one row per build. Status comes last so its color
// codes cannot break the column alignment.
func printHistory(out io.Writer, builds []eventstore.BuildSummary) error {
	renderer := lipgloss.NewRenderer(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tBUILD\tTRIGGER\tPOSTS\tTAGS\tDURATION\tSTATUS")
	for _, b := range builds {
		status := b.Status
		if b.ErrorStage != "" {
			status += " (" + b.ErrorStage + ")"
		}
		style := renderer.NewStyle().Foreground(statusColors[b.Status])
		if b.Status == eventstore.StatusFailed {
			style = style.Bold(true)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			b.StartedAt.Local().Format(time.DateTime),
			b.BuildID,
			b.Trigger,
			b.Posts,
			b.Tags,
			b.Duration.Round(time.Millisecond),
			style.Render(status))
	}
	return tw.Flush()
}
