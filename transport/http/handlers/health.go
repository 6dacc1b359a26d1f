package handlers

import (
	"net/http"
	"time"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	stats     *Stats
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(stats *Stats, version string) *HealthHandler {
	if stats == nil {
		stats = &Stats{}
	}
	return &HealthHandler{stats: stats, startTime: time.Now(), version: version}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Uptime    int64         `json:"uptime_seconds"`
	Metrics   HealthMetrics `json:"metrics"`
}

// HealthMetrics represents intake counters
type HealthMetrics struct {
	BuildsReceived int64   `json:"builds_received"`
	BuildsNotified int64   `json:"builds_notified"`
	BuildsRejected int64   `json:"builds_rejected"`
	MessagesSent   int64   `json:"messages_sent"`
	MessagesFailed int64   `json:"messages_failed"`
	SuccessRate    float64 `json:"success_rate"`
}

// Handle handles the health check request
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	sent, failed := h.stats.Sent.Load(), h.stats.Failed.Load()
	var successRate float64
	if total := sent + failed; total > 0 {
		successRate = float64(sent) / float64(total)
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    int64(time.Since(h.startTime).Seconds()),
		Metrics: HealthMetrics{
			BuildsReceived: h.stats.Received.Load(),
			BuildsNotified: h.stats.Notified.Load(),
			BuildsRejected: h.stats.Rejected.Load(),
			MessagesSent:   sent,
			MessagesFailed: failed,
			SuccessRate:    successRate,
		},
	})
}
