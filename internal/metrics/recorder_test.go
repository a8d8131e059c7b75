package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveStageDuration("load", time.Millisecond)
		r.ObserveBuildDuration(time.Millisecond)
		r.IncStageResult("load", ResultSuccess)
		r.IncBuildOutcome(BuildOutcomeSkipped)
		r.SetSiteSize(0, 0, 0)
	})
	var _ Recorder = (*PrometheusRecorder)(nil)
}
