package model

import "time"

// SmtpConfig is an outbound mail server configuration.  PasswordEnc holds a
// cipher envelope; the plaintext password is never stored.
type SmtpConfig struct {
    ID          uint64
    Host        string
    Port        int
    Username    string
    PasswordEnc string
    CreatedBy   string
    UpdatedBy   string
    CreatedAt   time.Time
    UpdatedAt   time.Time
}

// SmtpConfigPatch lists the fields an update may change.  Nil fields are
// left untouched; Password is plaintext and gets encrypted before storage.
type SmtpConfigPatch struct {
    Host     *string
    Port     *int
    Username *string
    Password *string
}
