// Package metrics defines the prometheus collectors exported by the ledger
// server. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger's collectors.
type Metrics struct {
	entriesPosted *prometheus.CounterVec
	voids         *prometheus.CounterVec
	txRetries     *prometheus.CounterVec
	captures      *prometheus.CounterVec
	rpcDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		entriesPosted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "troopledger",
			Name:      "journal_entries_posted_total",
			Help:      "Journal entries posted, by entry type.",
		}, []string{"type"}),
		voids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "troopledger",
			Name:      "voids_total",
			Help:      "Void operations, by target (entry, billing_record, billing_charge).",
		}, []string{"target"}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "troopledger",
			Name:      "transaction_retries_total",
			Help:      "Ledger transactions retried after a lock conflict, by operation.",
		}, []string{"operation"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "troopledger",
			Name:      "card_captures_total",
			Help:      "Card capture attempts, by outcome.",
		}, []string{"outcome"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "troopledger",
			Name:      "rpc_duration_seconds",
			Help:      "RPC handling time, by procedure and code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure", "code"}),
	}
	reg.MustRegister(m.entriesPosted, m.voids, m.txRetries, m.captures, m.rpcDuration)
	return m
}

// EntryPosted counts a posted journal entry.
func (m *Metrics) EntryPosted(entryType string) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(entryType).Inc()
}

// Voided counts a void of the given target kind.
func (m *Metrics) Voided(target string) {
	if m == nil {
		return
	}
	m.voids.WithLabelValues(target).Inc()
}

// Retried counts a transaction retry.
func (m *Metrics) Retried(operation string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(operation).Inc()
}

// Capture counts a card capture attempt; outcome is "success" or "failure".
func (m *Metrics) Capture(outcome string) {
	if m == nil {
		return
	}
	m.captures.WithLabelValues(outcome).Inc()
}

// ObserveRPC records the duration of one RPC.
func (m *Metrics) ObserveRPC(procedure, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcDuration.WithLabelValues(procedure, code).Observe(d.Seconds())
}
