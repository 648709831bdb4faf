// Package metrics exposes sync activity as Prometheus collectors.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/kbsync/pkg/core"
)

const namespace = "kbsync"

// Metrics implements core.Recorder.
type Metrics struct {
	attempts *prometheus.CounterVec
	learned  *prometheus.CounterVec
	lastSync *prometheus.GaugeVec
}

var _ core.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is handy in tests.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_attempts_total",
			Help:      "Number of push and pull attempts grouped by direction and outcome.",
		}, []string{"direction", "outcome"}),

		learned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "learned_records_total",
			Help:      "Number of records copied into a device's perspective by pull.",
		}, []string{"device"}),

		lastSync: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix timestamp of the most recent successful sync per device.",
		}, []string{"device"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.attempts, m.learned, m.lastSync} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register metrics: %w", err)
			}
		}
	}
	return m, nil
}

// RecordSync counts an attempt. Successful attempts also move the device's
// last sync timestamp.
func (m *Metrics) RecordSync(ev core.SyncEvent) {
	m.attempts.WithLabelValues(string(ev.Direction), string(ev.Outcome)).Inc()
	if ev.Succeeded() && !ev.Timestamp.IsZero() {
		m.lastSync.WithLabelValues(ev.DeviceID).Set(float64(ev.Timestamp.Unix()))
	}
}

// RecordLearned counts records learned by a device.
func (m *Metrics) RecordLearned(deviceID string, n int) {
	if n <= 0 {
		return
	}
	m.learned.WithLabelValues(deviceID).Add(float64(n))
}
