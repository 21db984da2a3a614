// Package metrics provides in-memory runtime statistics collection and the
// Prometheus instruments exported on /metrics.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full process statistics at a point in time.
type Snapshot struct {
	UptimeSeconds    float64            `json:"uptime_seconds"`
	Plan             *OperationSnapshot `json:"plan,omitempty"`
	Record           *OperationSnapshot `json:"record,omitempty"`
	Recompute        *OperationSnapshot `json:"recompute,omitempty"`
	StoreWrite       *OperationSnapshot `json:"store_write,omitempty"`
	StoreWriteErrors int64              `json:"store_write_errors"`
}

// Operation names for the collector.
const (
	OpPlan       = "plan"
	OpRecord     = "record"
	OpRecompute  = "recompute"
	OpStoreWrite = "store_write"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu          sync.RWMutex
	startTime   time.Time
	ops         map[string]*OperationMetrics
	writeErrors int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// RecordTiming records timing for an operation and mirrors it to Prometheus.
// A nil collector is a no-op.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	operationDuration.WithLabelValues(op).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	m.Count++
	m.TotalTime += duration
	m.MinTime = min(m.MinTime, duration)
	m.MaxTime = max(m.MaxTime, duration)
}

// Since records the time elapsed since start. Meant for defer.
func (c *Collector) Since(op string, start time.Time) {
	c.RecordTiming(op, time.Since(start))
}

// RecordWriteError counts a failed persistence write.
func (c *Collector) RecordWriteError() {
	if c == nil {
		return
	}
	storeWriteFailures.Inc()

	c.mu.Lock()
	c.writeErrors++
	c.mu.Unlock()
}

func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds:    time.Since(c.startTime).Seconds(),
		Plan:             snapshotOp(c.ops[OpPlan]),
		Record:           snapshotOp(c.ops[OpRecord]),
		Recompute:        snapshotOp(c.ops[OpRecompute]),
		StoreWrite:       snapshotOp(c.ops[OpStoreWrite]),
		StoreWriteErrors: c.writeErrors,
	}
}
