package database

import (
    "context"
    "database/sql"
    _ "embed"
    "strings"

    "github.com/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables the service needs when they are missing.
// Statements are idempotent (CREATE TABLE IF NOT EXISTS).
func EnsureSchema(ctx context.Context, db *sql.DB) error {
    for _, stmt := range splitStatements(schemaSQL) {
        if _, err := db.ExecContext(ctx, stmt); err != nil {
            return errors.Wrapf(err, "apply schema statement %.40q", stmt)
        }
    }
    return nil
}

// splitStatements drops comment lines and splits on ';'.
func splitStatements(src string) []string {
    var b strings.Builder
    for _, line := range strings.Split(src, "\n") {
        if strings.HasPrefix(strings.TrimSpace(line), "--") {
            continue
        }
        b.WriteString(line)
        b.WriteByte('\n')
    }
    var out []string
    for _, s := range strings.Split(b.String(), ";") {
        if s = strings.TrimSpace(s); s != "" {
            out = append(out, s)
        }
    }
    return out
}
