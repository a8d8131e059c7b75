package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
)

type fakeHistory struct {
	builds []eventstore.BuildSummary
	limits []int
}

func (h *fakeHistory) GetHistory(limit int) []eventstore.BuildSummary {
	h.limits = append(h.limits, limit)
	if limit > len(h.builds) {
		limit = len(h.builds)
	}
	return h.builds[:limit]
}

func (h *fakeHistory) GetBuild(id string) (*eventstore.BuildSummary, bool) {
	for i := range h.builds {
		if h.builds[i].BuildID == id {
			return &h.builds[i], true
		}
	}
	return nil, false
}

func newTestDaemon(t *testing.T, history History) *Daemon {
	t.Helper()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("blogbuilder_up 1\n"))
	})
	d, err := New(Config{MetricsAddr: "127.0.0.1:0", Metrics: metrics, History: history},
		func(context.Context, string) error { return nil })
	require.NoError(t, err)
	return d
}

func serve(d *Daemon, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	d.router().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	d := newTestDaemon(t, nil)

	rec := serve(d, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())

	rec = serve(d, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blogbuilder_up 1")

	rec = serve(d, http.MethodGet, "/builds")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "history routes need a history")
}

func TestRouter_Builds(t *testing.T) {
	started := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	history := &fakeHistory{builds: []eventstore.BuildSummary{
		{BuildID: "b2", Status: eventstore.StatusSuccess, StartedAt: started.Add(time.Hour), Posts: 3},
		{BuildID: "b1", Status: eventstore.StatusFailed, StartedAt: started, ErrorStage: "blog"},
	}}
	d := newTestDaemon(t, history)

	rec := serve(d, http.MethodGet, "/builds?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var builds []eventstore.BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &builds))
	require.Len(t, builds, 1)
	assert.Equal(t, "b2", builds[0].BuildID)
	assert.Equal(t, 3, builds[0].Posts)

	rec = serve(d, http.MethodGet, "/builds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1, defaultHistoryLimit}, history.limits)

	rec = serve(d, http.MethodGet, "/builds?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(d, http.MethodGet, "/builds/b1")
	require.Equal(t, http.StatusOK, rec.Code)
	var build eventstore.BuildSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &build))
	assert.Equal(t, "blog", build.ErrorStage)

	rec = serve(d, http.MethodGet, "/builds/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_EmptyHistoryIsJSONArray(t *testing.T) {
	d := newTestDaemon(t, &fakeHistory{})
	rec := serve(d, http.MethodGet, "/builds")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRouter_RequestRebuild(t *testing.T) {
	d := newTestDaemon(t, nil)

	rec := serve(d, http.MethodPost, "/builds")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case trigger := <-d.requests:
		assert.Equal(t, TriggerHTTP, trigger)
	default:
		t.Fatal("expected a queued build request")
	}
}
