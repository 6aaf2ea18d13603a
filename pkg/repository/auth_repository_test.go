package repository

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newAuthRepoWithMock(t *testing.T) (AuthRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewAuthRepository(db), mock, db
}

func TestRotateRefreshToken_DeleteAndInsertInOneTx(t *testing.T) {
	repo, mock, db := newAuthRepoWithMock(t)
	defer db.Close()

	expiresAt := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*token,\s*expires_at\)`).
		WithArgs(42, "new-token", expiresAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.RotateRefreshToken(42, "new-token", expiresAt); err != nil {
		t.Fatalf("RotateRefreshToken error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateRefreshToken_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock, db := newAuthRepoWithMock(t)
	defer db.Close()

	expiresAt := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1`).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens`).
		WithArgs(42, "new-token", expiresAt).
		WillReturnError(errors.New("insert failed"))
	mock.ExpectRollback()

	if err := repo.RotateRefreshToken(42, "new-token", expiresAt); err == nil {
		t.Fatal("expected error, got nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindRefreshToken_NotFound(t *testing.T) {
	repo, mock, db := newAuthRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+id,\s*user_id,\s*token,\s*expires_at\s+FROM\s+refresh_tokens`).
		WithArgs("missing", 42).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindRefreshToken("missing", 42)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestGetUserByUsername_LowercasesKey(t *testing.T) {
	repo, mock, db := newAuthRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"user_id", "username", "name", "password", "email"}).
		AddRow(7, "alice", "Alice", "hashed", nil)
	mock.ExpectQuery(`SELECT\s+user_id,\s*username,\s*name,\s*password,\s*email\s+FROM\s+users`).
		WithArgs("alice").
		WillReturnRows(rows)

	user, hashed, err := repo.GetUserByUsername("ALICE")
	if err != nil {
		t.Fatalf("GetUserByUsername error: %v", err)
	}
	if user.ID != 7 || hashed != "hashed" || user.Email != "" {
		t.Fatalf("unexpected result: %+v / %q", user, hashed)
	}
}

func TestDeleteRefreshTokenByToken_ZeroRowsIsFine(t *testing.T) {
	repo, mock, db := newAuthRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+token\s*=\s*\$1`).
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteRefreshTokenByToken("gone"); err != nil {
		t.Fatalf("DeleteRefreshTokenByToken error: %v", err)
	}
}
