package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/coursework/internal/api/middleware"
)

// DiagnosticsDeps are the collaborators of the diagnostics router. Backlog
// may be nil.
type DiagnosticsDeps struct {
	DB       Pinger
	Backlog  Backlog
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// NewDiagnosticsRouter serves GET /healthz and GET /metrics.
func NewDiagnosticsRouter(deps DiagnosticsDeps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log.With("component", "diagnostics")))
	r.Use(chimw.Recoverer)

	r.Method(http.MethodGet, "/healthz", &healthHandler{db: deps.DB, backlog: deps.Backlog})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not found", nil)
	})
	return r
}
