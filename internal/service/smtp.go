package service

import (
    "context"
    "strings"
    "time"

    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
    "github.com/iliyamo/session-auth/internal/repository"
)

// MaskedPassword replaces the SMTP password in every read.
const MaskedPassword = "****"

// SmtpStore persists SMTP configurations.  repository.SmtpRepo is the MySQL
// implementation.
type SmtpStore interface {
    Create(ctx context.Context, c model.SmtpConfig) (uint64, error)
    Latest(ctx context.Context) (model.SmtpConfig, error)
    Update(ctx context.Context, id uint64, patch model.SmtpConfigPatch, passwordEnc, updatedBy string, now time.Time) error
    Delete(ctx context.Context, id uint64) error
}

// SecretBox seals secrets at rest.  utils.Cipher implements it.
type SecretBox interface {
    Encrypt(plain string) (string, error)
    Decrypt(envelope string) (string, error)
}

// SmtpView is the admin-facing, password-masked configuration.
type SmtpView struct {
    ID       uint64 `json:"id"`
    Host     string `json:"host"`
    Port     int    `json:"port"`
    Username string `json:"username"`
    Password string `json:"password"`
}

// SmtpSettings is the active configuration with its password decrypted.
// It never leaves the process.
type SmtpSettings struct {
    Host     string
    Port     int
    Username string
    Password string
}

// SmtpService manages SMTP configurations.  Passwords are encrypted before
// they reach the store and are only decrypted to open a mail connection.
type SmtpService struct {
    store SmtpStore
    box   SecretBox
    now   func() time.Time
}

func NewSmtpService(store SmtpStore, box SecretBox) *SmtpService {
    return &SmtpService{store: store, box: box, now: time.Now}
}

// ValidationError is returned for unusable input.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Create stores a configuration; every field is required.
func (s *SmtpService) Create(ctx context.Context, host string, port int, username, password, actor string) (uint64, error) {
    host, username = strings.TrimSpace(host), strings.TrimSpace(username)
    if host == "" || port == 0 || username == "" || password == "" {
        return 0, &ValidationError{Msg: "All fields required"}
    }
    if port < 1 || port > 65535 {
        return 0, &ValidationError{Msg: "port out of range"}
    }
    enc, err := s.box.Encrypt(password)
    if err != nil {
        return 0, errors.Wrap(err, "encrypt smtp password")
    }
    return s.store.Create(ctx, model.SmtpConfig{
        Host: host, Port: port, Username: username, PasswordEnc: enc, CreatedBy: actor,
    })
}

// Read returns the active configuration with the password masked, or nil
// when none exists.
func (s *SmtpService) Read(ctx context.Context) (*SmtpView, error) {
    c, err := s.store.Latest(ctx)
    if errors.Is(err, repository.ErrNotFound) {
        return nil, nil
    }
    if err != nil {
        return nil, err
    }
    return &SmtpView{ID: c.ID, Host: c.Host, Port: c.Port, Username: c.Username, Password: MaskedPassword}, nil
}

// Update applies patch to configuration id, re-encrypting a new password.
func (s *SmtpService) Update(ctx context.Context, id uint64, patch model.SmtpConfigPatch, actor string) error {
    if patch.Port != nil && (*patch.Port < 1 || *patch.Port > 65535) {
        return &ValidationError{Msg: "port out of range"}
    }
    var enc string
    if patch.Password != nil && *patch.Password != "" {
        var err error
        if enc, err = s.box.Encrypt(*patch.Password); err != nil {
            return errors.Wrap(err, "encrypt smtp password")
        }
    }
    return s.store.Update(ctx, id, patch, enc, actor, s.now().UTC())
}

func (s *SmtpService) Delete(ctx context.Context, id uint64) error {
    return s.store.Delete(ctx, id)
}

// Active loads and decrypts the configuration used for sending.  It returns
// ErrNotConfigured when there is none; an envelope that no longer opens
// (for instance after a key change) surfaces as utils.ErrDecryption.
func (s *SmtpService) Active(ctx context.Context) (SmtpSettings, error) {
    c, err := s.store.Latest(ctx)
    if errors.Is(err, repository.ErrNotFound) {
        return SmtpSettings{}, ErrNotConfigured
    }
    if err != nil {
        return SmtpSettings{}, err
    }
    pass, err := s.box.Decrypt(c.PasswordEnc)
    if err != nil {
        return SmtpSettings{}, err
    }
    return SmtpSettings{Host: c.Host, Port: c.Port, Username: c.Username, Password: pass}, nil
}
