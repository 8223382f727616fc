package repository

import (
    "context"
    "regexp"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAdminRepoCreateName(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()
    repo := NewAdminRepo(db)

    mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM admin_profiles WHERE email=?")).
        WithArgs("root@x.io").
        WillReturnRows(sqlmock.NewRows([]string{"name"}))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admin_profiles (email, name)")).
        WithArgs("root@x.io", "Root").
        WillReturnResult(sqlmock.NewResult(1, 1))
    require.NoError(t, repo.CreateName(context.Background(), "Root@x.io", "Root"))

    mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM admin_profiles WHERE email=?")).
        WithArgs("root@x.io").
        WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Root"))
    assert.ErrorIs(t, repo.CreateName(context.Background(), "root@x.io", "Other"), ErrConflict)

    assert.NoError(t, mock.ExpectationsWereMet())
}
