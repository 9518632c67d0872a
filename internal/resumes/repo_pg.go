package resumes

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB  *sql.DB
	now func() time.Time
}

const resumeColumns = `id, user_id, title, email, resume_details, image_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var res Resume
	var details []byte
	var imageID sql.NullString
	if err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.Title,
		&res.Email,
		&details,
		&imageID,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	res.Details = details
	if imageID.Valid {
		res.ImageID = imageID.String
	}
	return res, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func (r *PGRepo) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now().UTC()
}

// Create inserts a new resume.
func (r *PGRepo) Create(ctx context.Context, res Resume) error {
	const query = `
INSERT INTO resumes (
    id,
    user_id,
    title,
    email,
    resume_details,
    image_id,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	details := string(res.Details)
	if details == "" {
		details = "{}"
	}
	_, err := r.DB.ExecContext(
		ctx,
		query,
		res.ID,
		res.UserID,
		res.Title,
		res.Email,
		details,
		nullString(res.ImageID),
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

// GetByID fetches a resume by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return res, nil
}

// ListByUser lists a user's resumes newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	return r.list(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

// ListByEmail lists resumes saved under an email newest first.
func (r *PGRepo) ListByEmail(ctx context.Context, email string) ([]Resume, error) {
	return r.list(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE email = $1 ORDER BY created_at DESC, id`, email)
}

// ListAll lists every resume newest first.
func (r *PGRepo) ListAll(ctx context.Context) ([]Resume, error) {
	return r.list(ctx, `SELECT `+resumeColumns+` FROM resumes ORDER BY created_at DESC, id`)
}

func (r *PGRepo) list(ctx context.Context, query string, args ...any) ([]Resume, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Update applies the non-nil patch fields and returns the stored row.
func (r *PGRepo) Update(ctx context.Context, id string, p Patch) (Resume, error) {
	query := `
UPDATE resumes
SET title = COALESCE($1, title),
    user_id = COALESCE($2, user_id),
    resume_details = COALESCE($3::jsonb, resume_details),
    image_id = COALESCE($4, image_id),
    updated_at = $5
WHERE id = $6
RETURNING ` + resumeColumns

	var details sql.NullString
	if p.Details != nil {
		details = sql.NullString{String: string(p.Details), Valid: true}
	}
	res, err := scanResume(r.DB.QueryRowContext(
		ctx,
		query,
		nullStringPtr(p.Title),
		nullStringPtr(p.UserID),
		details,
		nullStringPtr(p.ImageID),
		r.clock(),
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return res, nil
}

// Delete removes a resume.
func (r *PGRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByUser returns resume counts keyed by user id.
func (r *PGRepo) CountByUser(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT user_id, COUNT(*) FROM resumes GROUP BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, err
		}
		out[userID] = n
	}
	return out, rows.Err()
}

// DeleteByUser removes every resume owned by a user.
func (r *PGRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

var _ Repo = (*PGRepo)(nil)
