package repository

import (
    "context"
    "regexp"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/session-auth/internal/model"
)

func newSmtpMock(t *testing.T) (*SmtpRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return NewSmtpRepo(db), mock
}

func TestSmtpRepoCreate(t *testing.T) {
    repo, mock := newSmtpMock(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO smtp_configs")).
        WithArgs("smtp.x.io", 465, "mailer", "n:c", "root@x.io").
        WillReturnResult(sqlmock.NewResult(5, 1))

    id, err := repo.Create(context.Background(), model.SmtpConfig{
        Host: "smtp.x.io", Port: 465, Username: "mailer", PasswordEnc: "n:c", CreatedBy: "root@x.io",
    })
    require.NoError(t, err)
    assert.EqualValues(t, 5, id)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSmtpRepoLatest(t *testing.T) {
    repo, mock := newSmtpMock(t)
    cols := []string{"id", "host", "port", "username", "password_enc", "created_by", "updated_by", "created_at", "updated_at"}
    mock.ExpectQuery(regexp.QuoteMeta("FROM smtp_configs ORDER BY updated_at DESC")).
        WillReturnRows(sqlmock.NewRows(cols).AddRow(5, "smtp.x.io", 587, "mailer", "n:c", "root@x.io", nil, testNow, testNow))
    mock.ExpectQuery(regexp.QuoteMeta("FROM smtp_configs ORDER BY updated_at DESC")).
        WillReturnRows(sqlmock.NewRows(cols))

    cfg, err := repo.Latest(context.Background())
    require.NoError(t, err)
    assert.Equal(t, 587, cfg.Port)
    assert.Equal(t, "root@x.io", cfg.CreatedBy)
    assert.Empty(t, cfg.UpdatedBy)

    _, err = repo.Latest(context.Background())
    assert.ErrorIs(t, err, ErrNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSmtpRepoUpdateOnlyPatchedFields(t *testing.T) {
    repo, mock := newSmtpMock(t)
    host := "mail.x.io"
    mock.ExpectExec(regexp.QuoteMeta("UPDATE smtp_configs SET updated_by=?, updated_at=?, host=?, password_enc=? WHERE id=?")).
        WithArgs("root@x.io", sqlmock.AnyArg(), host, "n2:c2", 5).
        WillReturnResult(sqlmock.NewResult(0, 1))

    err := repo.Update(context.Background(), 5, model.SmtpConfigPatch{Host: &host}, "n2:c2", "root@x.io", testNow)
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSmtpRepoMissingRow(t *testing.T) {
    repo, mock := newSmtpMock(t)
    mock.ExpectExec("UPDATE smtp_configs").WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectExec(regexp.QuoteMeta("DELETE FROM smtp_configs WHERE id=?")).
        WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))

    err := repo.Update(context.Background(), 8, model.SmtpConfigPatch{}, "", "root@x.io", testNow)
    assert.ErrorIs(t, err, ErrNotFound)
    assert.ErrorIs(t, repo.Delete(context.Background(), 8), ErrNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}
