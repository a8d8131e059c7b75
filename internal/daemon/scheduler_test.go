package daemon

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
)

func TestNewSchedule(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		cron     string
		jobs     int
		category errors.ErrorCategory
	}{
		{name: "nothing configured"},
		{name: "interval only", interval: time.Hour, jobs: 1},
		{name: "cron only", cron: "0 */4 * * *", jobs: 1},
		{name: "both", interval: time.Hour, cron: "30 6 * * *", jobs: 2},
		{name: "bad cron", cron: "this is not a cron", category: errors.CategoryValidation},
		{name: "negative interval", interval: -time.Second, cron: "0 * * * *", category: errors.CategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newSchedule(tt.interval, tt.cron, func() {})
			if tt.category != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCategory(err, tt.category), "got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.jobs == 0 {
				assert.Nil(t, s)
				return
			}
			require.NotNil(t, s)
			t.Cleanup(s.stop)
			assert.Equal(t, tt.jobs, s.jobs)
		})
	}
}

func TestSchedule_RequestsRebuilds(t *testing.T) {
	var requests atomic.Int32
	s, err := newSchedule(20*time.Millisecond, "", func() { requests.Add(1) })
	require.NoError(t, err)
	t.Cleanup(s.stop)
	s.start()

	require.Eventually(t, func() bool { return requests.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}
