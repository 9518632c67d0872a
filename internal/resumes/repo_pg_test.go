package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
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

var resumeCols = []string{"id", "user_id", "title", "email", "resume_details", "image_id", "created_at", "updated_at"}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	res := Resume{
		ID:        "r1",
		UserID:    "u1",
		Email:     "jane@example.com",
		Details:   json.RawMessage(`{"skills":["Go"]}`),
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec("INSERT INTO resumes").
		WithArgs("r1", "u1", "", "jane@example.com", `{"skills":["Go"]}`, sql.NullString{}, now, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id = \\$1").
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(resumeCols).
			AddRow("r1", "u1", "CV", "jane@example.com", []byte(`{"a":1}`), "img_a.png", now, now))

	res, err := repo.GetByID(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if res.ImageID != "img_a.png" || string(res.Details) != `{"a":1}` || res.Title != "CV" {
		t.Fatalf("unexpected resume %+v", res)
	}

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListByUserHandlesNullImage(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE user_id = \\$1 ORDER BY created_at DESC").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(resumeCols).
			AddRow("r2", "u1", "", "", []byte(`{}`), nil, now, now).
			AddRow("r1", "u1", "", "", []byte(`{}`), "img_b.png", now.Add(-time.Hour), now))

	list, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 || list[0].ImageID != "" || list[1].ImageID != "img_b.png" {
		t.Fatalf("unexpected list %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdatePassesOnlyProvidedFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	title := "New title"

	mock.ExpectQuery("UPDATE resumes").
		WithArgs(
			sql.NullString{String: title, Valid: true},
			sql.NullString{},
			sql.NullString{String: `{"b":2}`, Valid: true},
			sql.NullString{},
			now,
			"r1",
		).
		WillReturnRows(sqlmock.NewRows(resumeCols).
			AddRow("r1", "u1", title, "", []byte(`{"b":2}`), nil, now, now))

	res, err := repo.Update(context.Background(), "r1", Patch{Title: &title, Details: json.RawMessage(`{"b":2}`)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Title != title || !res.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected resume %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoDeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("DELETE FROM resumes WHERE id = \\$1").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCountByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT user_id, COUNT\\(\\*\\) FROM resumes GROUP BY user_id").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "count"}).
			AddRow("u1", 2).
			AddRow("u2", 1))

	counts, err := repo.CountByUser(context.Background())
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if counts["u1"] != 2 || counts["u2"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
