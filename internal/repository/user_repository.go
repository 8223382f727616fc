package repository

import (
    "context"
    "database/sql"
    "strconv"
    "strings"

    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
)

// UserRepo persists OTP-authenticated users (table users).
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,name,mobile,address,is_deleted,created_at,updated_at"

// NormalizeEmail lowercases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string {
    return strings.ToLower(strings.TrimSpace(email))
}

// FindOrCreateByEmail returns the id of the user owning email, creating the
// row when none exists.  A soft-deleted account is reactivated.
func (r *UserRepo) FindOrCreateByEmail(ctx context.Context, email string) (uint64, error) {
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email) VALUES (?) ON DUPLICATE KEY UPDATE id=LAST_INSERT_ID(id), is_deleted=0",
        NormalizeEmail(email))
    if err != nil {
        return 0, errors.Wrap(err, "upsert user")
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, errors.Wrap(err, "user id")
    }
    return uint64(id), nil
}

// GetByID fetches an active user.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    u, err := scanUser(r.DB.QueryRowContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE id=? AND is_deleted=0 LIMIT 1", id))
    if errors.Is(err, sql.ErrNoRows) {
        return model.User{}, ErrNotFound
    }
    return u, errors.Wrap(err, "get user")
}

// GetField reads one profile column of an active user; nil means unset.
func (r *UserRepo) GetField(ctx context.Context, id uint64, f model.ProfileField) (*string, error) {
    if !f.Valid() {
        return nil, errors.Errorf("unknown profile field %q", f)
    }
    var v sql.NullString
    err := r.DB.QueryRowContext(ctx,
        "SELECT "+string(f)+" FROM users WHERE id=? AND is_deleted=0 LIMIT 1", id).Scan(&v)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, errors.Wrapf(err, "get %s", f)
    }
    return nullPtr(v), nil
}

// CreateField sets a profile column that is currently unset (NULL or
// empty).  It returns ErrConflict when a value is already present.
func (r *UserRepo) CreateField(ctx context.Context, id uint64, f model.ProfileField, value string) error {
    if !f.Valid() {
        return errors.Errorf("unknown profile field %q", f)
    }
    col := string(f)
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET "+col+"=? WHERE id=? AND is_deleted=0 AND ("+col+" IS NULL OR "+col+"='')",
        value, id)
    if err != nil {
        return errors.Wrapf(err, "create %s", f)
    }
    if n, err := res.RowsAffected(); err != nil {
        return errors.Wrap(err, "rows affected")
    } else if n > 0 {
        return nil
    }
    // Nothing matched: either the user is gone or the field is taken.
    if _, err := r.GetField(ctx, id, f); err != nil {
        return err
    }
    return ErrConflict
}

// SetField overwrites a profile column; a nil value clears it.
func (r *UserRepo) SetField(ctx context.Context, id uint64, f model.ProfileField, value *string) error {
    if !f.Valid() {
        return errors.Errorf("unknown profile field %q", f)
    }
    res, err := r.DB.ExecContext(ctx,
        "UPDATE users SET "+string(f)+"=? WHERE id=? AND is_deleted=0", ptrNull(value), id)
    if err != nil {
        return errors.Wrapf(err, "set %s", f)
    }
    n, err := res.RowsAffected()
    if err != nil {
        return errors.Wrap(err, "rows affected")
    }
    if n == 0 {
        // MySQL reports 0 affected rows when the value is unchanged.
        _, err := r.GetField(ctx, id, f)
        return err
    }
    return nil
}

// SoftDelete flags the account as deleted.  Deleting twice is not an error.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) error {
    _, err := r.DB.ExecContext(ctx, "UPDATE users SET is_deleted=1 WHERE id=?", id)
    return errors.Wrap(err, "soft delete user")
}

// CountActive counts users that are not soft-deleted.
func (r *UserRepo) CountActive(ctx context.Context) (int64, error) {
    var n int64
    err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE is_deleted=0").Scan(&n)
    return n, errors.Wrap(err, "count users")
}

// ListActive pages through active users, newest first.
func (r *UserRepo) ListActive(ctx context.Context, limit, offset int) ([]model.User, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT "+userColumns+" FROM users WHERE is_deleted=0 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
        limit, offset)
    if err != nil {
        return nil, errors.Wrap(err, "list users")
    }
    defer rows.Close()

    out := make([]model.User, 0, limit)
    for rows.Next() {
        u, err := scanUser(rows)
        if err != nil {
            return nil, errors.Wrap(err, "scan user")
        }
        out = append(out, u)
    }
    return out, errors.Wrap(rows.Err(), "iterate users")
}

type rowScanner interface {
    Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
    var (
        u                     model.User
        name, mobile, address sql.NullString
    )
    if err := s.Scan(&u.ID, &u.Email, &name, &mobile, &address, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt); err != nil {
        return model.User{}, err
    }
    u.Name, u.Mobile, u.Address = nullPtr(name), nullPtr(mobile), nullPtr(address)
    return u, nil
}

func nullPtr(v sql.NullString) *string {
    if !v.Valid {
        return nil
    }
    s := v.String
    return &s
}

func ptrNull(p *string) sql.NullString {
    if p == nil {
        return sql.NullString{}
    }
    return sql.NullString{String: *p, Valid: true}
}

// ParseUserID converts a token subject back into a users.id.
func ParseUserID(subject string) (uint64, error) {
    id, err := strconv.ParseUint(subject, 10, 64)
    if err != nil || id == 0 {
        return 0, ErrNotFound
    }
    return id, nil
}
