package core

import (
	"carecore/pkg/domain"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "carecore"

// Metrics records service outcomes as Prometheus series. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	operations     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	entitiesPurged *prometheus.CounterVec
	assetDeletions *prometheus.CounterVec
}

// NewMetrics creates the service collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		entitiesPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cascade_entities_deleted_total",
			Help:      "Documents removed by cascading deletes.",
		}, []string{"entity"}),
		assetDeletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "asset_deletions_total",
			Help:      "Asset deletions attempted by cascading deletes.",
		}, []string{"status"}),
	}
	for _, c := range []prometheus.Collector{m.operations, m.duration, m.entitiesPurged, m.assetDeletions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, status(err)).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// DocumentDeleted counts one cascaded document deletion.
func (m *Metrics) DocumentDeleted(entity domain.EntityType) {
	if m == nil {
		return
	}
	m.entitiesPurged.WithLabelValues(string(entity)).Inc()
}

// AssetDeleted counts one asset deletion attempt.
func (m *Metrics) AssetDeleted(_ string, err error) {
	if m == nil {
		return
	}
	m.assetDeletions.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
