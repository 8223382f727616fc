package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/pkg/errors"

    "github.com/iliyamo/session-auth/internal/model"
)

// SmtpRepo persists SMTP configurations.  The newest row by updated_at is
// the active configuration.  Callers hand in already-encrypted passwords.
type SmtpRepo struct{ DB *sql.DB }

func NewSmtpRepo(db *sql.DB) *SmtpRepo { return &SmtpRepo{DB: db} }

// Create inserts a configuration and returns its id.
func (r *SmtpRepo) Create(ctx context.Context, c model.SmtpConfig) (uint64, error) {
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO smtp_configs (host, port, username, password_enc, created_by) VALUES (?,?,?,?,?)",
        c.Host, c.Port, c.Username, c.PasswordEnc, nullString(c.CreatedBy))
    if err != nil {
        return 0, errors.Wrap(err, "insert smtp config")
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, errors.Wrap(err, "smtp config id")
    }
    return uint64(id), nil
}

// Latest returns the most recently updated configuration, or ErrNotFound.
func (r *SmtpRepo) Latest(ctx context.Context) (model.SmtpConfig, error) {
    var (
        c         model.SmtpConfig
        createdBy sql.NullString
        updatedBy sql.NullString
    )
    err := r.DB.QueryRowContext(ctx,
        "SELECT id, host, port, username, password_enc, created_by, updated_by, created_at, updated_at FROM smtp_configs ORDER BY updated_at DESC, id DESC LIMIT 1",
    ).Scan(&c.ID, &c.Host, &c.Port, &c.Username, &c.PasswordEnc, &createdBy, &updatedBy, &c.CreatedAt, &c.UpdatedAt)
    if errors.Is(err, sql.ErrNoRows) {
        return model.SmtpConfig{}, ErrNotFound
    }
    if err != nil {
        return model.SmtpConfig{}, errors.Wrap(err, "latest smtp config")
    }
    c.CreatedBy = createdBy.String
    c.UpdatedBy = updatedBy.String
    return c, nil
}

// Update applies the non-nil fields of patch.  passwordEnc replaces the
// stored envelope when non-empty.
func (r *SmtpRepo) Update(ctx context.Context, id uint64, patch model.SmtpConfigPatch, passwordEnc, updatedBy string, now time.Time) error {
    sets := []string{"updated_by=?", "updated_at=?"}
    args := []any{nullString(updatedBy), now.UTC()}
    if patch.Host != nil {
        sets = append(sets, "host=?")
        args = append(args, *patch.Host)
    }
    if patch.Port != nil {
        sets = append(sets, "port=?")
        args = append(args, *patch.Port)
    }
    if patch.Username != nil {
        sets = append(sets, "username=?")
        args = append(args, *patch.Username)
    }
    if passwordEnc != "" {
        sets = append(sets, "password_enc=?")
        args = append(args, passwordEnc)
    }
    args = append(args, id)

    res, err := r.DB.ExecContext(ctx, "UPDATE smtp_configs SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
    if err != nil {
        return errors.Wrap(err, "update smtp config")
    }
    return requireRow(res)
}

// Delete removes a configuration.
func (r *SmtpRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.DB.ExecContext(ctx, "DELETE FROM smtp_configs WHERE id=?", id)
    if err != nil {
        return errors.Wrap(err, "delete smtp config")
    }
    return requireRow(res)
}

// requireRow maps "zero rows affected" to ErrNotFound.
func requireRow(res sql.Result) error {
    n, err := res.RowsAffected()
    if err != nil {
        return errors.Wrap(err, "rows affected")
    }
    if n == 0 {
        return ErrNotFound
    }
    return nil
}
