package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/build"
	"git.home.luguber.info/inful/blogbuilder/internal/config"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output        string `short:"o" help:"Output directory (overrides paths.output)" type:"path"`
	SkipUnchanged bool   `name:"skip-unchanged" help:"Skip the build when nothing changed since the last successful one"`
	NoDeploy      bool   `name:"no-deploy" help:"Do not upload the output even if deploy.s3 is configured"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Paths.Output = b.Output
	}
	if b.SkipUnchanged {
		cfg.Build.SkipUnchanged = true
	}
	if b.NoDeploy {
		cfg.Deploy = config.DeployConfig{}
	}

	ctx := context.Background()
	svc, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	report, err := svc.builder.Run(ctx)
	printReport(g.out(), report, cfg.Paths.Output)
	return err
}

func printReport(out io.Writer, report *build.Report, outputDir string) {
	if report == nil {
		return
	}
	switch report.Outcome {
	case build.OutcomeSkipped:
		_, _ = fmt.Fprintf(out, "Build skipped: %s is up to date\n", outputDir)
	case build.OutcomeSuccess:
		_, _ = fmt.Fprintf(out, "Build succeeded: %d posts, %d pages, %d tags, %d feed entries in %s (%s)\n",
			report.Posts, report.Pages, report.Tags, report.FeedEntries, outputDir, report.Duration().Round(time.Millisecond))
		if report.Uploaded > 0 {
			_, _ = fmt.Fprintf(out, "Deployed %d files\n", report.Uploaded)
		}
	default:
		_, _ = fmt.Fprintf(out, "Build %s in stage %s\n", report.Outcome, report.FailedStage)
	}
}
