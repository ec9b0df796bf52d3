package metrics

import (
	"net/http"

	"github.com/drujensen/meowwchat/internal/domain/interfaces"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meowwchat"

const resultAlreadyRunning = "already_running"

// TranscriptMetrics exports thread session activity to Prometheus.
type TranscriptMetrics struct {
	registry        *prometheus.Registry
	sends           *prometheus.CounterVec
	inFlight        prometheus.Gauge
	fragmentsParsed prometheus.Counter
	linesDropped    prometheus.Counter
	refreshFailures prometheus.Counter
}

// NewTranscriptMetrics registers its collectors, plus the Go runtime and
// process collectors, on a registry of its own.
func NewTranscriptMetrics() *TranscriptMetrics {
	m := &TranscriptMetrics{
		registry: prometheus.NewRegistry(),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sends_total",
			Help:      "Chat sends by result.",
		}, []string{"result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sends_in_flight",
			Help:      "Chat sends currently streaming.",
		}),
		fragmentsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_fragments_parsed_total",
			Help:      "Stream lines decoded into a message fragment.",
		}),
		linesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_lines_dropped_total",
			Help:      "Stream lines that could not be decoded.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_refresh_failures_total",
			Help:      "History reloads that failed after a stream completed.",
		}),
	}

	m.registry.MustRegister(
		m.sends,
		m.inFlight,
		m.fragmentsParsed,
		m.linesDropped,
		m.refreshFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *TranscriptMetrics) SendStarted() {
	m.inFlight.Inc()
}

func (m *TranscriptMetrics) SendFinished(result string) {
	m.inFlight.Dec()
	m.sends.WithLabelValues(result).Inc()
}

func (m *TranscriptMetrics) SendRejected() {
	m.sends.WithLabelValues(resultAlreadyRunning).Inc()
}

func (m *TranscriptMetrics) FragmentsParsed(n int) {
	if n > 0 {
		m.fragmentsParsed.Add(float64(n))
	}
}

func (m *TranscriptMetrics) LinesDropped(n int) {
	if n > 0 {
		m.linesDropped.Add(float64(n))
	}
}

func (m *TranscriptMetrics) RefreshFailed() {
	m.refreshFailures.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *TranscriptMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ interfaces.TranscriptMetrics = (*TranscriptMetrics)(nil)
