package model

import "time"

// Audience is the authentication domain a session or token belongs to.
// Tokens issued for one audience never authorize the other's endpoints.
type Audience string

const (
    AudienceAdmin Audience = "admin"
    AudienceUser  Audience = "user"
)

// Valid reports whether a is one of the known audiences.
func (a Audience) Valid() bool { return a == AudienceAdmin || a == AudienceUser }

// TokenSession models a row of the `token_sessions` ledger.  Each issued
// refresh token maps to exactly one row through RefreshID; the JWT itself is
// never stored.  Rows are only ever mutated to set RevokedAt.
type TokenSession struct {
    ID        uint64
    Audience  Audience   // token_sessions.user_type
    SubjectID string     // admin email or user id
    RefreshID string     // random UUID, embedded as the refresh token's sid
    UserAgent string
    IP        string
    ExpiresAt time.Time
    RevokedAt *time.Time // nil while active
    CreatedAt time.Time
}

// Active reports whether the session can still be rotated at now.
func (s TokenSession) Active(now time.Time) bool {
    return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// ClientMeta is optional request metadata recorded on a new session.
type ClientMeta struct {
    UserAgent string
    IP        string
}
