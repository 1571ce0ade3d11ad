package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	LoginSuccesses   prometheus.Counter
	LoginFailures    prometheus.Counter
	AccountLockouts  prometheus.Counter
	AuthFailures     *prometheus.CounterVec
	TokenRefreshes   prometheus.Counter
	TokenRevocations prometheus.Counter
	SessionsCreated  prometheus.Counter
	ActiveSessions   prometheus.Gauge

	RateLimitAllowed *prometheus.CounterVec
	RateLimitDenied  *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec

	AuthenticateLatency prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		LoginSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_login_successes_total",
			Help: "Total number of successful logins",
		}),
		LoginFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_login_failures_total",
			Help: "Total number of failed login attempts",
		}),
		AccountLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_account_lockouts_total",
			Help: "Total number of accounts locked after repeated failures",
		}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_auth_failures_total",
			Help: "Total number of authentication failures, labeled by reason",
		}, []string{"reason"}),
		TokenRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_token_refreshes_total",
			Help: "Total number of successful token refresh operations",
		}),
		TokenRevocations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_token_revocations_total",
			Help: "Total number of access tokens added to the revocation registry",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "authgate_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "authgate_active_sessions",
			Help: "Current number of active sessions",
		}),
		RateLimitAllowed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_ratelimit_allowed_total",
			Help: "Total number of requests admitted by the rate limiter, labeled by rule",
		}, []string{"rule"}),
		RateLimitDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_ratelimit_denied_total",
			Help: "Total number of requests denied by the rate limiter, labeled by rule",
		}, []string{"rule"}),
		StoreErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_store_errors_total",
			Help: "Total number of shared store failures, labeled by store",
		}, []string{"store"}),
		AuthenticateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "authgate_authenticate_latency_seconds",
			Help:    "Latency of the authenticate pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncrementLoginSuccesses increments the successful login counter by 1.
func (m *Metrics) IncrementLoginSuccesses() {
	m.LoginSuccesses.Inc()
}

// IncrementLoginFailures increments the failed login counter by 1.
func (m *Metrics) IncrementLoginFailures() {
	m.LoginFailures.Inc()
}

// IncrementAccountLockouts increments the lockout counter by 1.
func (m *Metrics) IncrementAccountLockouts() {
	m.AccountLockouts.Inc()
}

// IncrementAuthFailures increments the auth failure counter for a reason.
func (m *Metrics) IncrementAuthFailures(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// IncrementTokenRefreshes increments the refresh counter by 1.
func (m *Metrics) IncrementTokenRefreshes() {
	m.TokenRefreshes.Inc()
}

// IncrementTokenRevocations increments the revocation counter by 1.
func (m *Metrics) IncrementTokenRevocations() {
	m.TokenRevocations.Inc()
}

// IncrementSessionsCreated increments the session creation counter and gauge.
func (m *Metrics) IncrementSessionsCreated() {
	m.SessionsCreated.Inc()
	m.ActiveSessions.Inc()
}

// DecrementActiveSessions lowers the active session gauge by n.
func (m *Metrics) DecrementActiveSessions(n int) {
	m.ActiveSessions.Sub(float64(n))
}

// IncrementRateLimitAllowed counts an admission for a named rule.
func (m *Metrics) IncrementRateLimitAllowed(rule string) {
	m.RateLimitAllowed.WithLabelValues(rule).Inc()
}

// IncrementRateLimitDenied counts a denial for a named rule.
func (m *Metrics) IncrementRateLimitDenied(rule string) {
	m.RateLimitDenied.WithLabelValues(rule).Inc()
}

// IncrementStoreErrors counts a shared store failure for a named store.
func (m *Metrics) IncrementStoreErrors(store string) {
	m.StoreErrors.WithLabelValues(store).Inc()
}

// ObserveAuthenticateDuration records the duration of an authenticate call.
func (m *Metrics) ObserveAuthenticateDuration(seconds float64) {
	m.AuthenticateLatency.Observe(seconds)
}
