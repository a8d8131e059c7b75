package build

import (
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// Outcome is the final status of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = eventstore.StatusSuccess
	OutcomeSkipped  Outcome = eventstore.StatusSkipped
	OutcomeFailed   Outcome = eventstore.StatusFailed
	OutcomeCanceled Outcome = eventstore.StatusCanceled
)

// IsSuccess reports whether the site output is up to date.
func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess || o == OutcomeSkipped
}

func (o Outcome) metricLabel() metrics.BuildOutcomeLabel {
	switch o {
	case OutcomeSuccess:
		return metrics.BuildOutcomeSuccess
	case OutcomeSkipped:
		return metrics.BuildOutcomeSkipped
	case OutcomeCanceled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}

// Build stages, in execution order.
const (
	StageLoad      = "load"
	StageSkipCheck = "skip_check"
	StageDocuments = "documents"
	StageBlog      = "blog"
	StageDeploy    = "deploy"
)

// Report describes a finished build.
type Report struct {
	BuildID     string
	Trigger     string
	Start       time.Time
	End         time.Time
	Documents   int
	Posts       int
	Pages       int // document pages written
	Tags        int
	FeedEntries int
	Uploaded    int // objects written by the deploy stage
	Fingerprint string
	Outcome     Outcome

	StageDurations map[string]time.Duration
	FailedStage    string
	Error          error
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration {
	return r.End.Sub(r.Start)
}
