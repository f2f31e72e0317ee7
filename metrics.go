package authkit

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram. IDs are dense and
// stable within a release; exporters map them to backend-specific names.
type MetricID uint16

const (
	// MetricLoginSuccess counts successful password authentications.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts failed password authentications.
	MetricLoginFailure
	// MetricLoginLocked counts logins rejected by an active lockout.
	MetricLoginLocked
	// MetricLoginSuspended counts logins rejected for suspended identities.
	MetricLoginSuspended
	// MetricMFAGate counts logins halted pending a second factor.
	MetricMFAGate
	// MetricTokenIssued counts issued access tokens, all flows combined.
	MetricTokenIssued
	// MetricTokenValidated counts successful access token validations.
	MetricTokenValidated
	// MetricTokenRejected counts failed access token validations.
	MetricTokenRejected
	// MetricTokenRevoked counts explicit token revocations.
	MetricTokenRevoked
	// MetricRefreshSuccess counts successful refresh rotations.
	MetricRefreshSuccess
	// MetricRefreshReplay counts refresh attempts with a consumed token.
	MetricRefreshReplay
	// MetricCodeGranted counts minted authorization codes.
	MetricCodeGranted
	// MetricCodeExchanged counts successful code exchanges.
	MetricCodeExchanged
	// MetricCodeReplay counts exchange attempts with a consumed code.
	MetricCodeReplay
	// MetricPKCEFailure counts exchanges rejected on verifier mismatch.
	MetricPKCEFailure
	// MetricClientCredentials counts client credentials grants.
	MetricClientCredentials
	// MetricDeviceGrantStarted counts device authorization requests.
	MetricDeviceGrantStarted
	// MetricDeviceGrantCompleted counts device grants redeemed for tokens.
	MetricDeviceGrantCompleted
	// MetricDevicePollPending counts polls answered "pending".
	MetricDevicePollPending
	// MetricDevicePollSlowDown counts polls answered "slow down".
	MetricDevicePollSlowDown
	// MetricDeviceGrantExpired counts polls against expired device codes.
	MetricDeviceGrantExpired
	// MetricRateLimitHit counts limiter checks that denied a request.
	MetricRateLimitHit
	// MetricAuditDropped counts audit events discarded by a full buffer.
	MetricAuditDropped
	// MetricValidateLatency is the access token validation latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

// Counters are padded to a cache line to avoid false sharing between
// adjacent IDs under concurrent increments.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's atomic counters and the validation latency
// histogram. All methods are safe for concurrent use and are no-ops on a
// nil or disabled receiver.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histogram
// buckets, consumed by the exporters under metrics/export.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates a metrics collector from config.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether the collector records anything.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a validation latency sample.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricValidateLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()
	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
