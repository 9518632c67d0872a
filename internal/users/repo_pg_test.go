package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var userCols = []string{"id", "first_name", "last_name", "username", "email", "password_hash", "role", "location", "google_sub", "picture_url", "reset_code", "reset_expires_at", "created_at"}

func TestPGRepoCreateMapsUniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{constraint: "users_email_key", want: ErrEmailTaken},
		{constraint: "users_username_key", want: ErrUsernameTaken},
	}
	for _, tt := range tests {
		repo, mock := newMockRepo(t)
		mock.ExpectExec("INSERT INTO users").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

		err := repo.Create(context.Background(), User{ID: "u1", Email: "a@example.com", Username: "ab1234", Role: RoleUser, CreatedAt: time.Now()})
		if !errors.Is(err, tt.want) {
			t.Fatalf("%s: expected %v, got %v", tt.constraint, tt.want, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("ExpectationsWereMet: %v", err)
		}
	}
}

func TestPGRepoGetByEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	exp := now.Add(5 * time.Minute)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
		WithArgs("jane@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "Jane", "Doe", "janedoe1234", "jane@example.com", "hash", "user", []byte(`{"city":"Austin"}`), nil, "", "codehash", exp, now))

	u, err := repo.GetByEmail(context.Background(), "jane@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if u.GoogleSub != "" || u.ResetCodeHash != "codehash" || u.ResetExpiresAt == nil || !u.ResetExpiresAt.Equal(exp) {
		t.Fatalf("unexpected user %+v", u)
	}
	if string(u.Location) != `{"city":"Austin"}` {
		t.Fatalf("location = %s", u.Location)
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = \\$1").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoLoginLogs(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO login_logs").
		WithArgs("l1", nil, "ghost@example.com", "1.2.3.4", "ua", false, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	if err := repo.AddLoginLog(context.Background(), LoginLog{ID: "l1", Email: "ghost@example.com", IPAddress: "1.2.3.4", UserAgent: "ua", CreatedAt: now}); err != nil {
		t.Fatalf("AddLoginLog: %v", err)
	}

	mock.ExpectQuery("SELECT (.+) FROM login_logs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "ip_address", "user_agent", "success", "created_at"}).
			AddRow("l1", nil, "ghost@example.com", "1.2.3.4", "ua", false, now).
			AddRow("l0", "u1", "jane@example.com", "1.2.3.4", "ua", true, now.Add(-time.Minute)))
	logs, err := repo.ListLoginLogs(context.Background())
	if err != nil {
		t.Fatalf("ListLoginLogs: %v", err)
	}
	if len(logs) != 2 || logs[0].UserID != "" || logs[1].UserID != "u1" || !logs[1].Success {
		t.Fatalf("unexpected logs %+v", logs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdatePasswordMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("newhash", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdatePassword(context.Background(), "ghost", "newhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
