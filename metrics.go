package labauth

import "sync/atomic"

// MetricID identifies an in-process counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricSignupSuccess
	MetricSignupDuplicate
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricAccountDeleted
	MetricRateLimiterFallback
	MetricAuditWriteFailure
	MetricRefreshSwept
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics returns a counter set. Disabled metrics ignore writes.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add adds n to id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Value returns the current value of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// MetricDef names a counter for exporters.
type MetricDef struct {
	ID   MetricID
	Name string
	Help string
}

// MetricDefs lists every exported counter.
var MetricDefs = []MetricDef{
	{ID: MetricLoginSuccess, Name: "labauth_login_success_total", Help: "Successful logins."},
	{ID: MetricLoginFailure, Name: "labauth_login_failure_total", Help: "Rejected logins (bad credentials or inactive account)."},
	{ID: MetricLoginRateLimited, Name: "labauth_login_rate_limited_total", Help: "Login and signup attempts rejected by the rate limiter."},
	{ID: MetricSignupSuccess, Name: "labauth_signup_success_total", Help: "Completed signups."},
	{ID: MetricSignupDuplicate, Name: "labauth_signup_duplicate_total", Help: "Signups rejected for an existing identity."},
	{ID: MetricRefreshSuccess, Name: "labauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: MetricRefreshFailure, Name: "labauth_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: MetricLogout, Name: "labauth_logout_total", Help: "Logout requests."},
	{ID: MetricAccountDeleted, Name: "labauth_account_deleted_total", Help: "Deleted accounts."},
	{ID: MetricRateLimiterFallback, Name: "labauth_rate_limiter_fallback_total", Help: "Shared limiter calls served by the in-process fallback."},
	{ID: MetricAuditWriteFailure, Name: "labauth_audit_write_failure_total", Help: "Audit writes that failed."},
	{ID: MetricRefreshSwept, Name: "labauth_refresh_swept_total", Help: "Dead refresh rows removed by sweeps."},
}
