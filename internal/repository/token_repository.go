package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
)

// TokenRepo is the refresh session ledger (table token_sessions).  Rows are
// inserted on issuance and only ever updated to set revoked_at.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const insertSessionSQL = "INSERT INTO token_sessions (user_type, subject_id, refresh_id, user_agent, ip, expires_at) VALUES (?,?,?,?,?,?)"

type execer interface {
    ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSession(ctx context.Context, ex execer, s model.TokenSession) error {
    _, err := ex.ExecContext(ctx, insertSessionSQL,
        string(s.Audience), s.SubjectID, s.RefreshID, nullString(s.UserAgent), nullString(s.IP), s.ExpiresAt.UTC())
    return err
}

// Create inserts an ACTIVE session row.
func (r *TokenRepo) Create(ctx context.Context, s model.TokenSession) error {
    return errors.Wrap(insertSession(ctx, r.DB, s), "insert token session")
}

// Rotate revokes the active row for oldRefreshID and inserts its successor in
// one transaction.  The successor inherits subject and audience from the old
// row; next supplies refresh id, expiry and client metadata.
//
// The revoke is a single conditional UPDATE, so of two concurrent rotations
// of the same id only one sees a matched row; the other gets ErrNotFound.
func (r *TokenRepo) Rotate(ctx context.Context, oldRefreshID string, next model.TokenSession, now time.Time) (model.TokenSession, error) {
    tx, err := r.DB.BeginTx(ctx, nil)
    if err != nil {
        return model.TokenSession{}, errors.Wrap(err, "begin rotate")
    }
    defer func() { _ = tx.Rollback() }()

    res, err := tx.ExecContext(ctx,
        "UPDATE token_sessions SET revoked_at=? WHERE refresh_id=? AND revoked_at IS NULL AND expires_at > ?",
        now.UTC(), oldRefreshID, now.UTC())
    if err != nil {
        return model.TokenSession{}, errors.Wrap(err, "revoke rotated session")
    }
    if n, err := res.RowsAffected(); err != nil {
        return model.TokenSession{}, errors.Wrap(err, "rows affected")
    } else if n == 0 {
        return model.TokenSession{}, ErrNotFound
    }

    var userType string
    if err := tx.QueryRowContext(ctx,
        "SELECT user_type, subject_id FROM token_sessions WHERE refresh_id=? LIMIT 1",
        oldRefreshID).Scan(&userType, &next.SubjectID); err != nil {
        return model.TokenSession{}, errors.Wrap(err, "load rotated session")
    }
    next.Audience = model.Audience(userType)

    if err := insertSession(ctx, tx, next); err != nil {
        return model.TokenSession{}, errors.Wrap(err, "insert successor session")
    }
    if err := tx.Commit(); err != nil {
        return model.TokenSession{}, errors.Wrap(err, "commit rotate")
    }
    return next, nil
}

// RevokeByRefreshID marks one active session as revoked.  It reports whether
// a row changed; an unknown or already revoked id is not an error.
func (r *TokenRepo) RevokeByRefreshID(ctx context.Context, refreshID string, now time.Time) (bool, error) {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE token_sessions SET revoked_at=? WHERE refresh_id=? AND revoked_at IS NULL",
        now.UTC(), refreshID)
    if err != nil {
        return false, errors.Wrap(err, "revoke session")
    }
    n, err := res.RowsAffected()
    if err != nil {
        return false, errors.Wrap(err, "rows affected")
    }
    return n > 0, nil
}

// RevokeAll revokes every active session of subjectID within aud.
func (r *TokenRepo) RevokeAll(ctx context.Context, subjectID string, aud model.Audience, now time.Time) (int64, error) {
    res, err := r.DB.ExecContext(ctx,
        "UPDATE token_sessions SET revoked_at=? WHERE subject_id=? AND user_type=? AND revoked_at IS NULL",
        now.UTC(), subjectID, string(aud))
    if err != nil {
        return 0, errors.Wrap(err, "revoke all sessions")
    }
    return res.RowsAffected()
}

func nullString(s string) sql.NullString {
    return sql.NullString{String: s, Valid: s != ""}
}
