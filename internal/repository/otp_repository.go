package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
)

// OTPVerdict tells Settle what to do with an email's stored codes once the
// caller has inspected the newest one.
type OTPVerdict int

const (
    // OTPKeep leaves the rows untouched.
    OTPKeep OTPVerdict = iota
    // OTPCountFailure increments the attempt counter of the inspected code.
    OTPCountFailure
    // OTPDeleteAll removes every code stored for the email.
    OTPDeleteAll
)

// OTPRepo stores one-time login codes (table otp_codes).
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Replace deletes all codes for c.Email and stores c, in one transaction.
func (r *OTPRepo) Replace(ctx context.Context, c model.OneTimeCode) error {
    tx, err := r.DB.BeginTx(ctx, nil)
    if err != nil {
        return errors.Wrap(err, "begin otp replace")
    }
    defer func() { _ = tx.Rollback() }()

    if _, err := tx.ExecContext(ctx, "DELETE FROM otp_codes WHERE email=?", c.Email); err != nil {
        return errors.Wrap(err, "delete previous otp codes")
    }
    if _, err := tx.ExecContext(ctx,
        "INSERT INTO otp_codes (email, code_hash, expires_at, attempts) VALUES (?,?,?,0)",
        c.Email, c.CodeHash, c.ExpiresAt.UTC()); err != nil {
        return errors.Wrap(err, "insert otp code")
    }
    return errors.Wrap(tx.Commit(), "commit otp replace")
}

// Settle locks the newest code for email (SELECT ... FOR UPDATE) and passes it
// to decide, or nil when there is none.  The returned verdict is applied
// before the transaction commits, so a concurrent Replace or Settle for the
// same email waits for this one to finish.
func (r *OTPRepo) Settle(ctx context.Context, email string, decide func(*model.OneTimeCode) OTPVerdict) error {
    tx, err := r.DB.BeginTx(ctx, nil)
    if err != nil {
        return errors.Wrap(err, "begin otp settle")
    }
    defer func() { _ = tx.Rollback() }()

    var c model.OneTimeCode
    err = tx.QueryRowContext(ctx,
        "SELECT id, email, code_hash, expires_at, attempts, created_at FROM otp_codes WHERE email=? ORDER BY id DESC LIMIT 1 FOR UPDATE",
        email).Scan(&c.ID, &c.Email, &c.CodeHash, &c.ExpiresAt, &c.Attempts, &c.CreatedAt)
    var found *model.OneTimeCode
    switch {
    case err == nil:
        found = &c
    case errors.Is(err, sql.ErrNoRows):
    default:
        return errors.Wrap(err, "load otp code")
    }

    switch decide(found) {
    case OTPCountFailure:
        if found == nil {
            break
        }
        if _, err := tx.ExecContext(ctx, "UPDATE otp_codes SET attempts=attempts+1 WHERE id=?", found.ID); err != nil {
            return errors.Wrap(err, "count otp failure")
        }
    case OTPDeleteAll:
        if _, err := tx.ExecContext(ctx, "DELETE FROM otp_codes WHERE email=?", email); err != nil {
            return errors.Wrap(err, "delete otp codes")
        }
    default:
        return nil // rollback releases the lock; nothing was written
    }
    return errors.Wrap(tx.Commit(), "commit otp settle")
}

// DeleteExpired removes codes whose expiry is at or before now.
func (r *OTPRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM otp_codes WHERE expires_at <= ?", now.UTC())
    if err != nil {
        return 0, errors.Wrap(err, "delete expired otp codes")
    }
    return res.RowsAffected()
}
