package service

import (
    "context"
    "fmt"
    "time"

    "github.com/pkg/errors"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/obs"
    "github.com/iliyamo/session-auth/internal/repository"
    "github.com/iliyamo/session-auth/internal/utils"
)

// CodeStore persists one-time codes.  repository.OTPRepo is the MySQL
// implementation.
type CodeStore interface {
    // Replace removes every code for c.Email and stores c atomically.
    Replace(ctx context.Context, c model.OneTimeCode) error
    // Settle locks the newest code for email, asks decide what to do with
    // it and applies the verdict before releasing the lock.
    Settle(ctx context.Context, email string, decide func(*model.OneTimeCode) repository.OTPVerdict) error
}

// Mailer delivers an HTML message.
type Mailer interface {
    Send(ctx context.Context, to, subject, html string) error
}

// OTPConfig sizes the login codes.
type OTPConfig struct {
    TTL         time.Duration
    MaxAttempts int // wrong guesses allowed per code before it is discarded
    BcryptCost  int
}

// OTPService issues and verifies email login codes.
type OTPService struct {
    store    CodeStore
    mailer   Mailer
    cfg      OTPConfig
    log      logrus.FieldLogger
    metrics  *obs.Metrics
    now      func() time.Time
    generate func() (string, error)
}

func NewOTPService(store CodeStore, mailer Mailer, cfg OTPConfig, log logrus.FieldLogger, metrics *obs.Metrics) *OTPService {
    if cfg.TTL <= 0 {
        cfg.TTL = 3 * time.Minute
    }
    if cfg.MaxAttempts < 1 {
        cfg.MaxAttempts = 5
    }
    return &OTPService{
        store:    store,
        mailer:   mailer,
        cfg:      cfg,
        log:      log,
        metrics:  metrics,
        now:      time.Now,
        generate: utils.GenerateOTP,
    }
}

// Issue creates a fresh code for email, invalidating any previous one, and
// returns it in plaintext.  Only its hash is stored.
func (s *OTPService) Issue(ctx context.Context, email string) (string, error) {
    email = repository.NormalizeEmail(email)
    code, err := s.generate()
    if err != nil {
        return "", errors.Wrap(err, "generate code")
    }
    hash, err := utils.HashSecret(code, s.cfg.BcryptCost)
    if err != nil {
        return "", errors.Wrap(err, "hash code")
    }
    err = s.store.Replace(ctx, model.OneTimeCode{
        Email:     email,
        CodeHash:  hash,
        ExpiresAt: s.now().UTC().Add(s.cfg.TTL),
    })
    if err != nil {
        return "", errors.Wrap(err, "store code")
    }
    s.metrics.CodeIssued()
    return code, nil
}

// Verify consumes the code for email.  It returns nil exactly once per
// issued code.  A missing or expired code yields ErrOTPExpired; a wrong one
// yields ErrOTPInvalid and counts against the code, which is discarded once
// MaxAttempts wrong guesses have been made.
func (s *OTPService) Verify(ctx context.Context, email, code string) error {
    email = repository.NormalizeEmail(email)
    now := s.now().UTC()

    var (
        result  error
        outcome string
    )
    err := s.store.Settle(ctx, email, func(c *model.OneTimeCode) repository.OTPVerdict {
        switch {
        case c == nil:
            result, outcome = ErrOTPExpired, "expired"
            return repository.OTPKeep
        case now.After(c.ExpiresAt):
            result, outcome = ErrOTPExpired, "expired"
            return repository.OTPDeleteAll
        case c.Attempts >= s.cfg.MaxAttempts:
            result, outcome = ErrOTPInvalid, "locked"
            return repository.OTPDeleteAll
        case !utils.VerifySecret(c.CodeHash, code):
            result, outcome = ErrOTPInvalid, "invalid"
            if c.Attempts+1 >= s.cfg.MaxAttempts {
                outcome = "locked"
                return repository.OTPDeleteAll
            }
            return repository.OTPCountFailure
        default:
            result, outcome = nil, "ok"
            return repository.OTPDeleteAll
        }
    })
    if err != nil {
        return errors.Wrap(err, "verify code")
    }
    s.metrics.CodeChecked(outcome)
    return result
}

// RequestCode issues a code and mails it to email.
func (s *OTPService) RequestCode(ctx context.Context, email string) error {
    code, err := s.Issue(ctx, email)
    if err != nil {
        return err
    }
    minutes := int(s.cfg.TTL.Round(time.Minute) / time.Minute)
    html := fmt.Sprintf("<p>Your OTP is <b>%s</b> (valid %d minutes).</p>", code, minutes)
    if err := s.mailer.Send(ctx, repository.NormalizeEmail(email), "Your Login Code", html); err != nil {
        if errors.Is(err, ErrNotConfigured) {
            return err
        }
        return errors.Wrap(err, "send code")
    }
    return nil
}
