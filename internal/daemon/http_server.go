package daemon

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"git.home.luguber.info/inful/blogbuilder/internal/eventstore"
)

const defaultHistoryLimit = 20

// History is the read side of the build history served over HTTP.
type History interface {
	GetHistory(limit int) []eventstore.BuildSummary
	GetBuild(buildID string) (*eventstore.BuildSummary, bool)
}

func (d *Daemon) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              d.cfg.MetricsAddr,
		Handler:           d.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// router serves metrics and health always; build history and manual
// rebuilds only when a history is configured.
func (d *Daemon) router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", d.cfg.Metrics).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/builds", d.handleRebuild).Methods(http.MethodPost)

	if d.cfg.History != nil {
		r.HandleFunc("/builds", d.handleListBuilds).Methods(http.MethodGet)
		r.HandleFunc("/builds/{id}", d.handleGetBuild).Methods(http.MethodGet)
	}
	return r
}

func (d *Daemon) handleRebuild(w http.ResponseWriter, _ *http.Request) {
	d.Request(TriggerHTTP)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (d *Daemon) handleListBuilds(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	builds := d.cfg.History.GetHistory(limit)
	if builds == nil {
		builds = []eventstore.BuildSummary{}
	}
	writeJSON(w, http.StatusOK, builds)
}

func (d *Daemon) handleGetBuild(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	build, ok := d.cfg.History.GetBuild(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "build not found"})
		return
	}
	writeJSON(w, http.StatusOK, build)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
