package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records download issuance and access-gate outcomes.
type DeliveryMetrics struct {
	downloadsIssued *prometheus.CounterVec
	accessDenied    *prometheus.CounterVec
	counterDegraded prometheus.Counter
	presignDuration prometheus.Histogram
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	downloadsIssued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "downloads_issued_total",
		Help: "Secure download URLs issued, by content type.",
	}, []string{"content_type"})
	accessDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "access_denied_total",
		Help: "Access-gate denials, by reason.",
	}, []string{"reason"})
	counterDegraded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "download_counter_degraded_total",
		Help: "Download-counter increments that failed and were swallowed.",
	})
	presignDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "presign_duration_seconds",
		Help:    "Latency of object-storage presign calls.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(downloadsIssued, accessDenied, counterDegraded, presignDuration)
	return &DeliveryMetrics{
		downloadsIssued: downloadsIssued,
		accessDenied:    accessDenied,
		counterDegraded: counterDegraded,
		presignDuration: presignDuration,
	}
}

// IncDownloadIssued increments the issued-download counter for a content type.
func (m *DeliveryMetrics) IncDownloadIssued(contentType string) {
	if m == nil || m.downloadsIssued == nil {
		return
	}
	m.downloadsIssued.WithLabelValues(normalizeLabel(contentType)).Inc()
}

// IncAccessDenied increments the denial counter for the named reason.
func (m *DeliveryMetrics) IncAccessDenied(reason string) {
	if m == nil || m.accessDenied == nil {
		return
	}
	m.accessDenied.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncCounterDegraded records one swallowed download-counter failure.
func (m *DeliveryMetrics) IncCounterDegraded() {
	if m == nil || m.counterDegraded == nil {
		return
	}
	m.counterDegraded.Inc()
}

// ObservePresign records the duration of one presign call.
func (m *DeliveryMetrics) ObservePresign(duration time.Duration) {
	if m == nil || m.presignDuration == nil {
		return
	}
	m.presignDuration.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
