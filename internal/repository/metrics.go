package repository

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts repository traffic. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	objectsStashed   prometheus.Counter
	bytesStashed     prometheus.Counter
	bytesBeforeStash prometheus.Counter
	objectsRetrieved prometheus.Counter
	bytesRetrieved   prometheus.Counter
	bytesRestored    prometheus.Counter
	failures         *prometheus.CounterVec
}

// NewMetrics registers the repository collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		objectsStashed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "objects_stashed_total",
			Help:      "Media entities uploaded.",
		}),
		bytesStashed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "stored_bytes_total",
			Help:      "Bytes uploaded after the provider pipeline.",
		}),
		bytesBeforeStash: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "source_bytes_total",
			Help:      "Bytes handed to the provider pipeline before upload.",
		}),
		objectsRetrieved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "objects_retrieved_total",
			Help:      "Objects downloaded and reversed.",
		}),
		bytesRetrieved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "retrieved_bytes_total",
			Help:      "Bytes downloaded before reversal.",
		}),
		bytesRestored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "restored_bytes_total",
			Help:      "Bytes returned to callers after reversal.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediastash",
			Name:      "failures_total",
			Help:      "Failed operations by stage.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.objectsStashed, m.bytesStashed, m.bytesBeforeStash,
		m.objectsRetrieved, m.bytesRetrieved, m.bytesRestored, m.failures)
	return m
}

func (m *Metrics) stashed(source, stored int) {
	if m == nil {
		return
	}
	m.objectsStashed.Inc()
	m.bytesBeforeStash.Add(float64(source))
	m.bytesStashed.Add(float64(stored))
}

func (m *Metrics) retrieved(downloaded, restored int) {
	if m == nil {
		return
	}
	m.objectsRetrieved.Inc()
	m.bytesRetrieved.Add(float64(downloaded))
	m.bytesRestored.Add(float64(restored))
}

func (m *Metrics) failure(op string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(op).Inc()
}
