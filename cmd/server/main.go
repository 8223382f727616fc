package main // Entry point package

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/config"
    "github.com/iliyamo/session-auth/internal/database"
    "github.com/iliyamo/session-auth/internal/handler"
    "github.com/iliyamo/session-auth/internal/limiter"
    "github.com/iliyamo/session-auth/internal/middleware"
    "github.com/iliyamo/session-auth/internal/obs"
    "github.com/iliyamo/session-auth/internal/queue"
    "github.com/iliyamo/session-auth/internal/repository"
    "github.com/iliyamo/session-auth/internal/router"
    "github.com/iliyamo/session-auth/internal/service"
    "github.com/iliyamo/session-auth/internal/utils"
)

func main() {
    cfg := config.Load() // Load environment config
    log := obs.NewLogger(os.Stdout, cfg.IsProd(), cfg.LogLevel)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg)
    if err != nil {
        log.WithError(err).Fatal("database unavailable")
    }
    defer db.Close()
    if err := database.EnsureSchema(ctx, db); err != nil {
        log.WithError(err).Fatal("schema setup failed")
    }

    key, err := utils.KeyFromConfig(cfg.EncryptionKDF, cfg.EncryptionKey, cfg.EncryptionSalt)
    if err != nil {
        log.WithError(err).Fatal("bad ENCRYPTION_KDF")
    }
    box, err := utils.NewCipher(key)
    if err != nil {
        log.WithError(err).Fatal("cipher setup failed")
    }

    reg := prometheus.NewRegistry()
    reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    metrics := obs.NewMetrics(reg)

    sessionOpts := []service.SessionOption{service.WithLogger(log), service.WithMetrics(metrics)}
    if cfg.Events.Enabled {
        pub := queue.NewPublisher(cfg.Events.AMQPURL, log)
        defer pub.Close()
        async := queue.NewAsync(pub, 1024, log)
        go async.Run(ctx)
        go queue.StartSessionConsumer(ctx, cfg.Events.AMQPURL, queue.NewAuditLog(cfg.Events.AuditLog), log)
        sessionOpts = append(sessionOpts, service.WithEvents(async))
        log.WithField("audit_log", cfg.Events.AuditLog).Info("session events enabled")
    }

    tokens := repository.NewTokenRepo(db)
    codes := repository.NewOTPRepo(db)
    users := repository.NewUserRepo(db)
    admins := repository.NewAdminRepo(db)
    smtps := repository.NewSmtpRepo(db)

    sessions := service.NewSessionService(tokens, service.SessionConfig{
        AccessSecret:  cfg.AccessSecret,
        RefreshSecret: cfg.RefreshSecret,
        AccessTTL:     cfg.AccessTTL,
        RefreshTTL:    time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
    }, sessionOpts...)
    smtpSvc := service.NewSmtpService(smtps, box)
    otpSvc := service.NewOTPService(codes, service.NewSMTPMailer(smtpSvc, cfg.MailFrom), service.OTPConfig{
        TTL:         cfg.OTP.TTL,
        MaxAttempts: cfg.OTP.MaxAttempts,
        BcryptCost:  cfg.BcryptCost,
    }, log, metrics)

    otpLimiter := newOTPLimiter(ctx, cfg.OTP, log)
    if cfg.OTP.SweepInterval > 0 {
        var purger service.Purger
        if mem, ok := otpLimiter.(*limiter.Memory); ok {
            purger = mem
        }
        go service.NewSweeper(codes, purger, cfg.OTP.SweepInterval, log).Run(ctx)
    }

    cookies := handler.CookieConfig{
        Domain: cfg.CookieDomain,
        Secure: cfg.IsProd(),
        MaxAge: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
    }

    e := echo.New() // Create Echo instance
    e.HideBanner = true
    e.HidePort = true
    e.HTTPErrorHandler = handler.ErrorHandler(log)
    if e.IPExtractor, err = middleware.IPExtractor(cfg.TrustedProxies); err != nil {
        log.WithError(err).Fatal("bad TRUSTED_PROXIES")
    }
    e.Use(echomw.Recover())
    e.Use(echomw.CORS())
    e.Use(middleware.Instrument(metrics))
    e.Use(middleware.RequestLogger(log))

    router.RegisterRoutes(e, metrics.Handler())
    router.RegisterAdmin(e,
        &handler.AdminAuthHandler{
            Sessions: sessions,
            Admin:    service.AdminCredentials{Email: cfg.AdminEmail, Password: cfg.AdminPassword},
            Profiles: admins,
            Cookies:  cookies,
            Log:      log,
        },
        &handler.InsightsHandler{Users: users, Log: log},
        sessions)
    router.RegisterSmtp(e, &handler.SmtpHandler{Smtp: smtpSvc, Log: log}, sessions)
    router.RegisterUser(e,
        &handler.UserAuthHandler{Sessions: sessions, Codes: otpSvc, Users: users, Cookies: cookies, Log: log},
        &handler.ProfileHandler{Users: users, Log: log},
        sessions,
        middleware.Throttle(otpLimiter, "Too many OTP requests", metrics, log))

    addr := ":" + cfg.Port // Address string with port
    go func() {
        log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.WithError(err).Fatal("server stopped")
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.WithError(err).Warn("graceful shutdown failed")
    }
    log.Info("bye")
}

// newOTPLimiter returns the Redis limiter when configured and reachable,
// and the in-process one otherwise.
func newOTPLimiter(ctx context.Context, c config.OTPConfig, log logrus.FieldLogger) limiter.Limiter {
    lc := limiter.Config{Window: c.LimitWindow, Max: c.LimitMax}
    if c.LimiterBackend == "redis" {
        rdb, err := config.NewRedisClient(ctx)
        if err == nil {
            log.Info("otp limiter: redis")
            return limiter.NewRedis(rdb, lc, "otp:req", time.Now)
        }
        log.WithError(err).Warn("otp limiter: redis unavailable, using memory")
    }
    return limiter.NewMemory(lc, time.Now)
}
