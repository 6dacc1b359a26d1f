package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/kart-io/buildnotify/pkg/build"
	"github.com/kart-io/buildnotify/pkg/notifier"
)

const maxEventBytes = 1 << 20

// Performer runs the notification flow for one build.
type Performer interface {
	Perform(ctx context.Context, rec build.Record, buildLog io.Writer) *notifier.Report
}

// Stats counts intake activity since start.
type Stats struct {
	Received atomic.Int64
	Notified atomic.Int64
	Sent     atomic.Int64
	Failed   atomic.Int64
	Rejected atomic.Int64
}

// BuildsHandler accepts build-completion events.
type BuildsHandler struct {
	notifier Performer
	stats    *Stats
}

// NewBuildsHandler creates a new builds handler
func NewBuildsHandler(n Performer, stats *Stats) *BuildsHandler {
	if stats == nil {
		stats = &Stats{}
	}
	return &BuildsHandler{notifier: n, stats: stats}
}

// BuildResponse carries the report and the lines written to the build log.
type BuildResponse struct {
	Report *notifier.Report `json:"report"`
	Log    []string         `json:"log"`
}

// Handle decodes a JSON or YAML build event and notifies synchronously.
// Delivery failures still answer 200: notification never fails a build.
func (h *BuildsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	h.stats.Received.Add(1)

	body := http.MaxBytesReader(w, r.Body, maxEventBytes)
	var (
		event *build.Event
		err   error
	)
	if isYAML(r.Header.Get("Content-Type")) {
		event, err = build.DecodeEventYAML(body)
	} else {
		event, err = build.DecodeEvent(body)
	}
	if err != nil {
		h.stats.Rejected.Add(1)
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var buildLog bytes.Buffer
	report := h.notifier.Perform(r.Context(), event, &buildLog)

	if report.Notified {
		h.stats.Notified.Add(1)
	}
	h.stats.Sent.Add(int64(report.Successful))
	h.stats.Failed.Add(int64(report.Failed))

	writeJSON(w, http.StatusOK, BuildResponse{
		Report: report,
		Log:    splitLines(buildLog.String()),
	})
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml")
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}
