package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpPlan, 10*time.Millisecond)
	c.RecordTiming(OpPlan, 30*time.Millisecond)
	c.RecordTiming(OpRecord, 5*time.Millisecond)

	snap := c.Snapshot()
	if snap.Plan == nil || snap.Plan.Count != 2 {
		t.Fatalf("plan snapshot = %+v", snap.Plan)
	}
	if snap.Plan.MinTimeMs != 10 || snap.Plan.MaxTimeMs != 30 || snap.Plan.AvgTimeMs != 20 {
		t.Errorf("plan stats = %+v", snap.Plan)
	}
	if snap.Record == nil || snap.Record.Count != 1 {
		t.Errorf("record snapshot = %+v", snap.Record)
	}
	if snap.Recompute != nil || snap.StoreWrite != nil {
		t.Error("unused operations should have nil snapshots")
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("uptime = %v", snap.UptimeSeconds)
	}
}

func TestCollector_WriteErrors(t *testing.T) {
	c := NewCollector()
	before := testutil.ToFloat64(storeWriteFailures)

	c.RecordWriteError()
	c.RecordWriteError()

	if got := c.Snapshot().StoreWriteErrors; got != 2 {
		t.Errorf("write errors = %d, want 2", got)
	}
	if got := testutil.ToFloat64(storeWriteFailures) - before; got != 2 {
		t.Errorf("prometheus counter delta = %v, want 2", got)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.RecordTiming(OpPlan, time.Millisecond)
	c.RecordWriteError()
	c.Since(OpRecord, time.Now())
}

func TestPrometheusHelpers(t *testing.T) {
	before := testutil.ToFloat64(interactionsRecorded.WithLabelValues("click"))
	InteractionRecorded("click")
	if got := testutil.ToFloat64(interactionsRecorded.WithLabelValues("click")) - before; got != 1 {
		t.Errorf("click counter delta = %v", got)
	}

	PlanServed("shivneri", true)
	if got := testutil.ToFloat64(plansServed.WithLabelValues("shivneri", "true")); got < 1 {
		t.Errorf("plans served = %v", got)
	}

	SetStoreFallback(true)
	if got := testutil.ToFloat64(storeFallback); got != 1 {
		t.Errorf("fallback gauge = %v", got)
	}
	SetStoreFallback(false)
	if got := testutil.ToFloat64(storeFallback); got != 0 {
		t.Errorf("fallback gauge = %v", got)
	}
}
