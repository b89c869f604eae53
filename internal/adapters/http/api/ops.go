package api

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/visualverse/internal/domain/types"
	"github.com/okian/visualverse/pkg/metrics"
)

//go:embed static/dashboard.html
var opsFS embed.FS

// StatsProvider reports live pipeline figures for GET /stats.
type StatsProvider interface {
	GetStats() types.ServiceStats
}

// OpsHandler serves the operational surfaces: metrics exposition, JSON
// stats and the embedded admin dashboard.
type OpsHandler struct {
	stats     StatsProvider
	exposer   http.Handler
	dashboard fs.FS
}

// NewOpsHandler builds the handler; the exposition comes from the metrics registry.
func NewOpsHandler(stats StatsProvider) *OpsHandler {
	sub, err := fs.Sub(opsFS, "static")
	if err != nil {
		panic(err)
	}
	return &OpsHandler{
		stats:     stats,
		exposer:   promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		dashboard: sub,
	}
}

// HandleHealth serves GET /healthz.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.exposer.ServeHTTP(w, r)
}

// HandleStats serves GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}

// HandleDashboard serves GET /dashboard. The page signs in through
// /admin/login and polls /admin/dashboard/stats and /stats.
func (h *OpsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, h.dashboard, "dashboard.html")
}
