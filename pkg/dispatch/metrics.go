package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/newtron-network/sairedis/pkg/sai"
)

// Metrics exports dispatcher activity to Prometheus.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	live       *prometheus.GaugeVec
}

// NewMetrics creates the dispatcher metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sairedis_operations_total",
				Help: "Total number of dispatched operations by object type, operation and status",
			},
			[]string{"object_type", "op", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sairedis_operation_duration_seconds",
				Help:    "Duration of dispatched operations in seconds, lock wait included",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"op"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sairedis_live_objects",
				Help: "Number of live objects by object type",
			},
			[]string{"object_type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration, m.live)
	}
	return m
}

func (m *Metrics) observe(op string, t sai.ObjectType, err error, elapsed time.Duration) {
	m.operations.WithLabelValues(t.ShortName(), op, sai.StatusOf(err).String()).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (m *Metrics) created(t sai.ObjectType) {
	m.live.WithLabelValues(t.ShortName()).Inc()
}

func (m *Metrics) removed(t sai.ObjectType) {
	m.live.WithLabelValues(t.ShortName()).Dec()
}
