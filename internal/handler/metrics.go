package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/aichatbot/chatbot-api/internal/metrics"
)

const metricPrefix = "chatbot_"

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeFamily(w, "counter", snap.Counters)
	writeFamily(w, "gauge", snap.Gauges)
}

// writeFamily writes samples sorted by name, with one TYPE line per metric name.
func writeFamily(w io.Writer, kind string, samples []metrics.Sample) {
	last := ""
	for _, s := range samples {
		name := metricPrefix + s.Name
		if s.Name != last {
			_, _ = fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
			last = s.Name
		}
		if s.Labels != "" {
			name += "{" + s.Labels + "}"
		}
		_, _ = fmt.Fprintf(w, "%s %g\n", name, s.Value)
	}
}
