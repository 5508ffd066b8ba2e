// Package health serves liveness, readiness and progress endpoints for
// long-running batch jobs, next to the /metrics endpoint.
//
//   - /healthz: liveness probe; always 200 OK.
//   - /readyz: 200 only when every registered [Check] passes.
//   - /progress: the current [Progress] snapshot, when a source is set.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail").
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Check is a named readiness probe. Fn returns nil when the dependency is
// usable, e.g. the plugins directory still parses.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Progress is a snapshot of a batch run.
type Progress struct {
	Total    int `json:"total"`
	Done     int `json:"done"`
	Failed   int `json:"failed"`
	InFlight int `json:"in_flight"`
}

type response struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks,omitempty"`
	Progress *Progress         `json:"progress,omitempty"`
}

// Handler serves the health endpoints. It is safe for concurrent use; checks
// are fixed at construction.
type Handler struct {
	checks   []Check
	progress func() Progress
}

// Option is a functional option for [New].
type Option func(*Handler)

// WithProgress exposes snapshots from fn at /progress.
func WithProgress(fn func() Progress) Option {
	return func(h *Handler) { h.progress = fn }
}

// New returns a Handler evaluating checks, in order, on each /readyz request.
func New(checks []Check, opts ...Option) *Handler {
	h := &Handler{checks: append([]Check(nil), checks...)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Healthz always answers 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz runs every check with a [checkTimeout] deadline and answers 503 if
// any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := response{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Fn(ctx)
		cancel()
		if err != nil {
			res.Checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			code = http.StatusServiceUnavailable
			continue
		}
		res.Checks[c.Name] = "ok"
	}
	writeJSON(w, code, res)
}

// ProgressHandler reports the batch progress. Without a progress source it
// answers 404.
func (h *Handler) ProgressHandler(w http.ResponseWriter, _ *http.Request) {
	if h.progress == nil {
		writeJSON(w, http.StatusNotFound, response{Status: "fail"})
		return
	}
	p := h.progress()
	writeJSON(w, http.StatusOK, response{Status: "ok", Progress: &p})
}

// Register adds the routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	mux.HandleFunc("GET /progress", h.ProgressHandler)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
