package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.EntryPosted("charge")
	m.EntryPosted("charge")
	m.Voided("entry")
	m.Retried("record_payment")
	m.Capture("failure")
	m.ObserveRPC("/troopledger.v1.LedgerService/GetAccount", "ok", 15*time.Millisecond)

	if got := testutil.ToFloat64(m.entriesPosted.WithLabelValues("charge")); got != 2 {
		t.Errorf("entries posted = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.captures.WithLabelValues("failure")); got != 1 {
		t.Errorf("capture failures = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.rpcDuration); n != 1 {
		t.Errorf("rpc duration series = %d, want 1", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.EntryPosted("charge")
	m.Voided("entry")
	m.Retried("x")
	m.Capture("success")
	m.ObserveRPC("p", "ok", time.Second)
}
