package obs

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "session_auth"

// Metrics groups every collector the service exports.  Fields are safe to
// use on a nil *Metrics through the helper methods, so tests can skip them.
type Metrics struct {
    SessionsIssued    *prometheus.CounterVec // by audience
    SessionsRotated   *prometheus.CounterVec // by audience
    SessionsRevoked   *prometheus.CounterVec // by audience, scope (one|all)
    RotationsRejected *prometheus.CounterVec // by audience
    OTPIssued         prometheus.Counter
    OTPVerified       *prometheus.CounterVec // by outcome
    Throttled         prometheus.Counter

    HTTPInFlight        prometheus.Gauge
    HTTPRequestDuration *prometheus.HistogramVec // method, path, status

    gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them with reg.  Passing a
// fresh prometheus.NewRegistry() keeps tests isolated from the default one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
    m := &Metrics{
        SessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Name: "sessions_issued_total",
            Help: "Refresh sessions created by login or code verification.",
        }, []string{"audience"}),
        SessionsRotated: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Name: "sessions_rotated_total",
            Help: "Successful refresh token rotations.",
        }, []string{"audience"}),
        SessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Name: "sessions_revoked_total",
            Help: "Sessions revoked by logout or account deletion.",
        }, []string{"audience", "scope"}),
        RotationsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Name: "rotations_rejected_total",
            Help: "Refresh tokens refused because they were unknown, expired or already used.",
        }, []string{"audience"}),
        OTPIssued: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: namespace, Name: "otp_issued_total",
            Help: "One-time codes generated.",
        }),
        OTPVerified: prometheus.NewCounterVec(prometheus.CounterOpts{
            Namespace: namespace, Name: "otp_verifications_total",
            Help: "One-time code checks by outcome.",
        }, []string{"outcome"}),
        Throttled: prometheus.NewCounter(prometheus.CounterOpts{
            Namespace: namespace, Name: "otp_requests_throttled_total",
            Help: "Code requests rejected by the rate limiter.",
        }),
        HTTPInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
            Namespace: namespace, Name: "http_in_flight_requests",
            Help: "In-flight HTTP requests.",
        }),
        HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
            Namespace: namespace, Name: "http_request_duration_seconds",
            Help:    "HTTP request latencies in seconds.",
            Buckets: prometheus.DefBuckets,
        }, []string{"method", "path", "status"}),
        gatherer: reg,
    }
    reg.MustRegister(
        m.SessionsIssued, m.SessionsRotated, m.SessionsRevoked, m.RotationsRejected,
        m.OTPIssued, m.OTPVerified, m.Throttled,
        m.HTTPInFlight, m.HTTPRequestDuration,
    )
    return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
    return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Issued(aud string) {
    if m != nil {
        m.SessionsIssued.WithLabelValues(aud).Inc()
    }
}

func (m *Metrics) Rotated(aud string) {
    if m != nil {
        m.SessionsRotated.WithLabelValues(aud).Inc()
    }
}

func (m *Metrics) Revoked(aud, scope string, n int64) {
    if m != nil && n > 0 {
        m.SessionsRevoked.WithLabelValues(aud, scope).Add(float64(n))
    }
}

func (m *Metrics) RotationRejected(aud string) {
    if m != nil {
        m.RotationsRejected.WithLabelValues(aud).Inc()
    }
}

func (m *Metrics) CodeIssued() {
    if m != nil {
        m.OTPIssued.Inc()
    }
}

// CodeChecked records a verification outcome: ok, expired, invalid or locked.
func (m *Metrics) CodeChecked(outcome string) {
    if m != nil {
        m.OTPVerified.WithLabelValues(outcome).Inc()
    }
}

func (m *Metrics) Throttle() {
    if m != nil {
        m.Throttled.Inc()
    }
}
