package handler

import (
	"log/slog"
	"net/http"

	"github.com/languaro/site/internal/telemetry"
)

// MetricsHandler proxies the dashboard's analytics fetch so the
// telemetry backend URL and read token never reach the browser.
type MetricsHandler struct {
	client *telemetry.Client
	logger *slog.Logger
}

func NewMetricsHandler(client *telemetry.Client, logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		client: client,
		logger: logger,
	}
}

type metricsError struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Get handles GET /api/metrics.
func (h *MetricsHandler) Get(w http.ResponseWriter, r *http.Request) {
	// Always no-cache so the dashboard sees fresh stats.
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")

	if !h.client.Configured() {
		writeError(w, http.StatusInternalServerError, "TELEMETRY_BACKEND_URL environment variable not configured")
		return
	}

	data, err := h.client.Overall(r.Context())
	if err != nil {
		h.logger.Error("fetch metrics", "error", err)
		writeJSON(w, http.StatusInternalServerError, metricsError{
			Error:   "Failed to fetch metrics",
			Details: err.Error(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
