// Package service implements the session lifecycle (issue, rotate, revoke),
// one-time-code login, and the encrypted SMTP configuration used to deliver
// codes.  Storage, mail transport and event delivery sit behind small
// interfaces so the rules here can be tested without a database.
package service

import "github.com/pkg/errors"

var (
    // ErrInvalidCredentials covers a wrong admin password and bad codes.
    ErrInvalidCredentials = errors.New("invalid credentials")
    // ErrInvalidSession is returned for any refresh token or session that
    // is unknown, expired, revoked or already rotated.  Callers cannot tell
    // these cases apart.
    ErrInvalidSession = errors.New("invalid session")
    // ErrWrongAudience means a valid access token was presented to the
    // other audience's endpoints.
    ErrWrongAudience = errors.New("token audience mismatch")
    // ErrRateLimited is matched by every *LimitError.
    ErrRateLimited   = errors.New("too many requests")
    ErrNotConfigured = errors.New("SMTP not configured")

    ErrOTPExpired = errors.Wrap(ErrInvalidCredentials, "OTP expired")
    ErrOTPInvalid = errors.Wrap(ErrInvalidCredentials, "invalid OTP")
)

// LimitError rejects a throttled request.  Msg is shown to the client.
type LimitError struct{ Msg string }

func (e *LimitError) Error() string { return e.Msg }

func (e *LimitError) Is(target error) bool { return target == ErrRateLimited }
