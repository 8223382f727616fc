package utils // package utils provides helper functions for token creation and hashing

import (
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
)

// ErrInvalidToken is returned for any token that fails signature, expiry,
// algorithm or claim checks.  Callers never learn which check failed.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the payload of an access token: the subject and the
// audience ("type") it was issued for.
type AccessClaims struct {
    jwt.RegisteredClaims
    Type model.Audience `json:"type"`
}

// RefreshClaims is the payload of a refresh token.  SID is the ledger's
// refresh id; the token carries no subject so a leaked refresh token reveals
// nothing beyond its session handle.
type RefreshClaims struct {
    jwt.RegisteredClaims
    SID  string         `json:"sid"`
    Type model.Audience `json:"type"`
}

// SignedToken is a serialized JWT along with its expiry.
type SignedToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 access token for subject within
// audience.  It must be signed with the access secret only.
func NewAccessToken(secret, subject string, aud model.Audience, ttl time.Duration, now time.Time) (SignedToken, error) {
    exp := now.UTC().Add(ttl)
    claims := AccessClaims{
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   subject,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
        Type: aud,
    }
    return sign(secret, claims, exp)
}

// NewRefreshToken builds and signs an HS256 refresh token that points at the
// ledger row sid.  exp should match the row's expires_at.
func NewRefreshToken(secret, sid string, aud model.Audience, exp, now time.Time) (SignedToken, error) {
    claims := RefreshClaims{
        RegisteredClaims: jwt.RegisteredClaims{
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
        SID:  sid,
        Type: aud,
    }
    return sign(secret, claims, exp.UTC())
}

func sign(secret string, claims jwt.Claims, exp time.Time) (SignedToken, error) {
    if secret == "" {
        return SignedToken{}, errors.New("empty signing secret")
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return SignedToken{}, errors.Wrap(err, "sign token")
    }
    return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature, algorithm and expiry (against now)
// and returns the claims.
func ParseAccessToken(secret, raw string, now time.Time) (*AccessClaims, error) {
    claims := &AccessClaims{}
    if err := parse(secret, raw, claims, now); err != nil {
        return nil, err
    }
    if claims.Subject == "" || !claims.Type.Valid() {
        return nil, ErrInvalidToken
    }
    return claims, nil
}

// ParseRefreshToken is ParseAccessToken for refresh tokens.
func ParseRefreshToken(secret, raw string, now time.Time) (*RefreshClaims, error) {
    claims := &RefreshClaims{}
    if err := parse(secret, raw, claims, now); err != nil {
        return nil, err
    }
    if claims.SID == "" || !claims.Type.Valid() {
        return nil, ErrInvalidToken
    }
    return claims, nil
}

func parse(secret, raw string, claims jwt.Claims, now time.Time) error {
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Reject anything that is not HMAC; "none" and RSA confusion included.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidToken
        }
        return []byte(secret), nil
    },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
        jwt.WithTimeFunc(func() time.Time { return now }),
    )
    if err != nil || !tok.Valid {
        return ErrInvalidToken
    }
    return nil
}
