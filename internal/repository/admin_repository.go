package repository

import (
    "context"
    "database/sql"

    "github.com/pkg/errors"
)

// AdminRepo stores the profile of the configured admin (table
// admin_profiles).  Rows are keyed by email and created on first login.
type AdminRepo struct{ DB *sql.DB }

func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{DB: db} }

// EnsureProfile inserts an empty profile for email if none exists.
func (r *AdminRepo) EnsureProfile(ctx context.Context, email string) error {
    _, err := r.DB.ExecContext(ctx,
        "INSERT INTO admin_profiles (email) VALUES (?) ON DUPLICATE KEY UPDATE email=email",
        NormalizeEmail(email))
    return errors.Wrap(err, "ensure admin profile")
}

// GetName returns the admin's display name, or nil when unset or when no
// profile row exists yet.
func (r *AdminRepo) GetName(ctx context.Context, email string) (*string, error) {
    var v sql.NullString
    err := r.DB.QueryRowContext(ctx,
        "SELECT name FROM admin_profiles WHERE email=? LIMIT 1", NormalizeEmail(email)).Scan(&v)
    if errors.Is(err, sql.ErrNoRows) {
        return nil, nil
    }
    if err != nil {
        return nil, errors.Wrap(err, "get admin name")
    }
    return nullPtr(v), nil
}

// CreateName sets the name only when it is unset; ErrConflict otherwise.
func (r *AdminRepo) CreateName(ctx context.Context, email, name string) error {
    cur, err := r.GetName(ctx, email)
    if err != nil {
        return err
    }
    if cur != nil && *cur != "" {
        return ErrConflict
    }
    return r.SetName(ctx, email, &name)
}

// SetName upserts the name; nil clears it.
func (r *AdminRepo) SetName(ctx context.Context, email string, name *string) error {
    _, err := r.DB.ExecContext(ctx,
        "INSERT INTO admin_profiles (email, name) VALUES (?,?) ON DUPLICATE KEY UPDATE name=VALUES(name)",
        NormalizeEmail(email), ptrNull(name))
    return errors.Wrap(err, "set admin name")
}
