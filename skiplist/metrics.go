package skiplist

import (
	"cmp"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet mirrors the counters the teacher tracked in its own
// unexported stats struct, exported as real Prometheus collectors.
type metricsSet struct {
	nodeAllocs      prometheus.Counter
	nodeFrees       prometheus.Counter
	retiredNodes    prometheus.Counter
	searchRestarts  prometheus.Counter
	insertConflicts prometheus.Counter
}

func newMetricsSet[K cmp.Ordered, V any](reg prometheus.Registerer, l *List[K, V]) *metricsSet {
	m := &metricsSet{
		nodeAllocs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lfskiplist_node_allocs_total",
			Help: "Number of nodes allocated by Insert.",
		}),
		nodeFrees: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lfskiplist_node_frees_total",
			Help: "Number of nodes whose destructor has run after reclamation.",
		}),
		retiredNodes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lfskiplist_retired_nodes_total",
			Help: "Number of nodes handed to the reclamation domain.",
		}),
		searchRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lfskiplist_search_restarts_total",
			Help: "Number of times find() restarted from the top level after a failed helping CAS.",
		}),
		insertConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lfskiplist_insert_conflicts_total",
			Help: "Number of times linkNodes lost a CAS race or found a stale successor and had to re-search.",
		}),
	}

	length := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lfskiplist_length",
		Help: "Current number of entries in the list.",
	}, func() float64 { return float64(l.Len()) })

	maxHeight := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "lfskiplist_max_height",
		Help: "Highest tower level ever populated on Head.",
	}, func() float64 { return float64(l.maxHeight.Load()) })

	reg.MustRegister(m.nodeAllocs, m.nodeFrees, m.retiredNodes, m.searchRestarts, m.insertConflicts, length, maxHeight)
	return m
}
