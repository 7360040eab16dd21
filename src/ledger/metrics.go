package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the prometheus collectors updated by a Ledger.
type Metrics struct {
	writes      *prometheus.CounterVec
	messages    prometheus.Gauge
	events      prometheus.Counter
	lagged      prometheus.Counter
	subscribers prometheus.Gauge
}

// NewMetrics registers the ledger collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "attest",
			Subsystem: "ledger",
			Name:      "writes_total",
			Help:      "Write operations by operation and outcome.",
		}, []string{"op", "result"}),
		messages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "attest",
			Subsystem: "ledger",
			Name:      "messages",
			Help:      "Number of stored messages.",
		}),
		events: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "attest",
			Subsystem: "ledger",
			Name:      "events_total",
			Help:      "Events appended to the log since start.",
		}),
		lagged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "attest",
			Subsystem: "ledger",
			Name:      "subscribers_lagged_total",
			Help:      "Subscriptions dropped because their buffer was full.",
		}),
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "attest",
			Subsystem: "ledger",
			Name:      "subscribers",
			Help:      "Active event subscriptions.",
		}),
	}
}

func (m *Metrics) observeWrite(op Op, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
		if !IsRejection(err) {
			result = "error"
		}
	}
	m.writes.WithLabelValues(string(op), result).Inc()
}

func (m *Metrics) observeCommit(state State, events, lagged, subscribers int) {
	if m == nil {
		return
	}
	m.messages.Set(float64(state.NextMessageID))
	m.events.Add(float64(events))
	m.lagged.Add(float64(lagged))
	m.subscribers.Set(float64(subscribers))
}

func (m *Metrics) observeSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
