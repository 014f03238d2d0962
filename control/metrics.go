// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Counters kept by the tool around socket calls: connections accepted,
// bytes moved, timeouts seen.

package control

import (
	"sync"
	"time"
)

// Well-known metric keys.
const (
	MetricAccepted = "conns.accepted"
	MetricClosed   = "conns.closed"
	MetricBytesIn  = "bytes.in"
	MetricBytesOut = "bytes.out"
	MetricTimeouts = "timeouts"
	MetricErrors   = "errors"
)

// MetricsRegistry holds named int64 counters.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]int64
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]int64),
	}
}

// Add increments key by delta.
func (mr *MetricsRegistry) Add(key string, delta int64) {
	mr.mu.Lock()
	mr.metrics[key] += delta
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Get returns the current value of key.
func (mr *MetricsRegistry) Get(key string) int64 {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.metrics[key]
}

// GetSnapshot returns the latest counters and when they last changed.
func (mr *MetricsRegistry) GetSnapshot() (map[string]int64, time.Time) {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]int64, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out, mr.updated
}
