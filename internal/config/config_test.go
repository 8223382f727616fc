package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadOTPConfig_Defaults(t *testing.T) {
    for _, k := range []string{"OTP_TTL", "OTP_MAX_ATTEMPTS", "OTP_LIMIT_WINDOW", "OTP_LIMIT_MAX", "OTP_LIMITER_BACKEND", "OTP_SWEEP_INTERVAL"} {
        t.Setenv(k, "")
    }
    c := LoadOTPConfig()
    assert.Equal(t, 3*time.Minute, c.TTL)
    assert.Equal(t, 5, c.MaxAttempts)
    assert.Equal(t, 3*time.Minute, c.LimitWindow)
    assert.Equal(t, 6, c.LimitMax)
    assert.Equal(t, "memory", c.LimiterBackend)
    assert.Zero(t, c.SweepInterval)
}

func TestLoadOTPConfig_ClampsInvalidValues(t *testing.T) {
    t.Setenv("OTP_TTL", "-1s")
    t.Setenv("OTP_MAX_ATTEMPTS", "0")
    t.Setenv("OTP_LIMIT_MAX", "-3")
    t.Setenv("OTP_LIMIT_WINDOW", "garbage")
    c := LoadOTPConfig()
    assert.Equal(t, 3*time.Minute, c.TTL)
    assert.Equal(t, 1, c.MaxAttempts)
    assert.Equal(t, 1, c.LimitMax)
    assert.Equal(t, 3*time.Minute, c.LimitWindow)
}

func TestLoad_ReadsRequiredAndOptional(t *testing.T) {
    t.Setenv("DB_USER", "app")
    t.Setenv("DB_HOST", "127.0.0.1")
    t.Setenv("DB_NAME", "auth")
    t.Setenv("JWT_ACCESS_SECRET", "access")
    t.Setenv("JWT_REFRESH_SECRET", "refresh")
    t.Setenv("ENCRYPTION_KEY", "passphrase")
    t.Setenv("ADMIN_EMAIL", "root@example.com")
    t.Setenv("ADMIN_PASSWORD", "pw")
    t.Setenv("ACCESS_TTL", "5m")
    t.Setenv("REFRESH_TTL_DAYS", "0")
    t.Setenv("APP_ENV", "production")
    t.Setenv("RABBITMQ_URL", "amqp://mq:5672/")
    t.Setenv("SMTP_FROM", "noreply@example.com")
    t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.0.2.1")

    cfg := Load()
    assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
    assert.Equal(t, 14, cfg.RefreshTTLDays)
    assert.Equal(t, "3306", cfg.DBPort)
    assert.Equal(t, "argon2id", cfg.EncryptionKDF)
    assert.Equal(t, "amqp://mq:5672/", cfg.Events.AMQPURL)
    assert.Equal(t, "noreply@example.com", cfg.MailFrom)
    assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
    assert.True(t, cfg.IsProd())
}

func TestEnvBool(t *testing.T) {
    t.Setenv("X_FLAG", "on")
    assert.True(t, envBool("X_FLAG", false))
    t.Setenv("X_FLAG", "NO")
    assert.False(t, envBool("X_FLAG", true))
    t.Setenv("X_FLAG", "maybe")
    assert.True(t, envBool("X_FLAG", true))
}
