package repository

import (
    "context"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/session-auth/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*TokenRepo, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return NewTokenRepo(db), mock
}

func TestTokenRepoCreate(t *testing.T) {
    repo, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_sessions")).
        WithArgs("user", "42", "sid-1", "curl/8", sqlmock.AnyArg(), sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(1, 1))

    err := repo.Create(context.Background(), model.TokenSession{
        Audience: model.AudienceUser, SubjectID: "42", RefreshID: "sid-1",
        UserAgent: "curl/8", ExpiresAt: testNow.Add(time.Hour),
    })
    require.NoError(t, err)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoRotate(t *testing.T) {
    repo, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectExec(regexp.QuoteMeta("UPDATE token_sessions SET revoked_at=? WHERE refresh_id=? AND revoked_at IS NULL AND expires_at > ?")).
        WithArgs(sqlmock.AnyArg(), "old", sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT user_type, subject_id FROM token_sessions")).
        WithArgs("old").
        WillReturnRows(sqlmock.NewRows([]string{"user_type", "subject_id"}).AddRow("admin", "root@example.com"))
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_sessions")).
        WithArgs("admin", "root@example.com", "new", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
        WillReturnResult(sqlmock.NewResult(2, 1))
    mock.ExpectCommit()

    got, err := repo.Rotate(context.Background(), "old",
        model.TokenSession{RefreshID: "new", ExpiresAt: testNow.Add(time.Hour)}, testNow)
    require.NoError(t, err)
    assert.Equal(t, model.AudienceAdmin, got.Audience)
    assert.Equal(t, "root@example.com", got.SubjectID)
    assert.Equal(t, "new", got.RefreshID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoRotateRejectsInactive(t *testing.T) {
    repo, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectExec("UPDATE token_sessions SET revoked_at").
        WillReturnResult(sqlmock.NewResult(0, 0))
    mock.ExpectRollback()

    _, err := repo.Rotate(context.Background(), "gone", model.TokenSession{RefreshID: "new"}, testNow)
    assert.ErrorIs(t, err, ErrNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoRevoke(t *testing.T) {
    repo, mock := newMock(t)
    mock.ExpectExec("UPDATE token_sessions SET revoked_at").
        WithArgs(sqlmock.AnyArg(), "sid-1").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("UPDATE token_sessions SET revoked_at").
        WithArgs(sqlmock.AnyArg(), "sid-1").
        WillReturnResult(sqlmock.NewResult(0, 0))

    changed, err := repo.RevokeByRefreshID(context.Background(), "sid-1", testNow)
    require.NoError(t, err)
    assert.True(t, changed)

    changed, err = repo.RevokeByRefreshID(context.Background(), "sid-1", testNow)
    require.NoError(t, err)
    assert.False(t, changed, "second revoke is a no-op")
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepoRevokeAll(t *testing.T) {
    repo, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta("WHERE subject_id=? AND user_type=? AND revoked_at IS NULL")).
        WithArgs(sqlmock.AnyArg(), "42", "user").
        WillReturnResult(sqlmock.NewResult(0, 3))

    n, err := repo.RevokeAll(context.Background(), "42", model.AudienceUser, testNow)
    require.NoError(t, err)
    assert.EqualValues(t, 3, n)
    assert.NoError(t, mock.ExpectationsWereMet())
}
