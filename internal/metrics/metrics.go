// Package metrics exposes queue activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"backend-queueflex/internal/queue"
)

type Metrics struct {
	registry *prometheus.Registry

	joinsTotal       *prometheus.CounterVec
	rejectionsTotal  *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	removalsTotal    *prometheus.CounterVec
	waiting          *prometheus.GaugeVec

	// last applied event sequence per service, guarding the waiting gauge
	seqMu   sync.Mutex
	lastSeq map[string]uint64
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lastSeq:  make(map[string]uint64),
		joinsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_joins_total",
				Help: "Admitted joins by service.",
			},
			[]string{"service"},
		),
		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_join_rejections_total",
				Help: "Rejected joins by reason.",
			},
			[]string{"reason"},
		),
		transitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_transitions_total",
				Help: "Status transitions by from/to status.",
			},
			[]string{"from", "to"},
		),
		removalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_removals_total",
				Help: "Removed entries by kind (remove, purge).",
			},
			[]string{"kind"},
		),
		waiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "queue_waiting_entries",
				Help: "Current waiting entries by service.",
			},
			[]string{"service"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.joinsTotal,
		m.rejectionsTotal,
		m.transitionsTotal,
		m.removalsTotal,
		m.waiting,
	)
	return m
}

// Listen is a queue.Listener. Events can arrive out of order, so the
// waiting gauge only moves forward in Seq.
func (m *Metrics) Listen(ev queue.Event) {
	m.setWaiting(ev)

	switch ev.Type {
	case queue.EventJoined:
		m.joinsTotal.WithLabelValues(ev.ServiceID).Inc()
	case queue.EventUpdated:
		if ev.From != ev.Entry.Status {
			m.transitionsTotal.WithLabelValues(string(ev.From), string(ev.Entry.Status)).Inc()
		}
	case queue.EventRemoved:
		m.removalsTotal.WithLabelValues("remove").Inc()
	case queue.EventPurged:
		m.removalsTotal.WithLabelValues("purge").Inc()
	}
}

func (m *Metrics) setWaiting(ev queue.Event) {
	m.seqMu.Lock()
	defer m.seqMu.Unlock()
	if ev.Seq != 0 {
		if ev.Seq <= m.lastSeq[ev.ServiceID] {
			return
		}
		m.lastSeq[ev.ServiceID] = ev.Seq
	}
	m.waiting.WithLabelValues(ev.ServiceID).Set(float64(ev.Waiting))
}

// JoinRejected counts a refused join.
func (m *Metrics) JoinRejected(reason string) {
	m.rejectionsTotal.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
