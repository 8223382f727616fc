package obs

import (
    "bytes"
    "io"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestNewLoggerFormats(t *testing.T) {
    var buf bytes.Buffer
    log := NewLogger(&buf, true, "debug")
    assert.Equal(t, logrus.DebugLevel, log.GetLevel())
    log.WithField("sid", "abc").Info("issued")
    assert.Contains(t, buf.String(), `"sid":"abc"`)

    buf.Reset()
    log = NewLogger(&buf, false, "loud")
    assert.Equal(t, logrus.InfoLevel, log.GetLevel())
    assert.Contains(t, buf.String(), "invalid log level")
}

// counterValue reads a counter sample from reg; labels are name/value pairs.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
    t.Helper()
    families, err := reg.Gather()
    require.NoError(t, err)
    for _, f := range families {
        if f.GetName() != name {
            continue
        }
    metrics:
        for _, m := range f.GetMetric() {
            got := map[string]string{}
            for _, l := range m.GetLabel() {
                got[l.GetName()] = l.GetValue()
            }
            for i := 0; i+1 < len(labels); i += 2 {
                if got[labels[i]] != labels[i+1] {
                    continue metrics
                }
            }
            return m.GetCounter().GetValue()
        }
    }
    return 0
}

func TestMetricsCounters(t *testing.T) {
    reg := prometheus.NewRegistry()
    m := NewMetrics(reg)
    m.Issued("user")
    m.Issued("user")
    m.Rotated("admin")
    m.Revoked("user", "all", 3)
    m.Revoked("user", "one", 0)
    m.CodeChecked("invalid")

    assert.Equal(t, 2.0, counterValue(t, reg, "session_auth_sessions_issued_total", "audience", "user"))
    assert.Equal(t, 1.0, counterValue(t, reg, "session_auth_sessions_rotated_total", "audience", "admin"))
    assert.Equal(t, 3.0, counterValue(t, reg, "session_auth_sessions_revoked_total", "audience", "user", "scope", "all"))
    assert.Equal(t, 0.0, counterValue(t, reg, "session_auth_sessions_revoked_total", "scope", "one"))
    assert.Equal(t, 1.0, counterValue(t, reg, "session_auth_otp_verifications_total", "outcome", "invalid"))

    rec := httptest.NewRecorder()
    m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
    body, err := io.ReadAll(rec.Body)
    require.NoError(t, err)
    assert.True(t, strings.Contains(string(body), "session_auth_sessions_issued_total"))
}

func TestNilMetricsIsSafe(t *testing.T) {
    var m *Metrics
    assert.NotPanics(t, func() {
        m.Issued("user")
        m.RotationRejected("admin")
        m.Throttle()
    })
}
