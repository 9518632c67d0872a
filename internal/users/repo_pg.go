package users

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const userColumns = `id, first_name, last_name, username, email, password_hash, role, location, google_sub, picture_url, reset_code, reset_expires_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var location []byte
	var googleSub sql.NullString
	var resetCode sql.NullString
	var resetExpires sql.NullTime
	if err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&location,
		&googleSub,
		&u.PictureURL,
		&resetCode,
		&resetExpires,
		&u.CreatedAt,
	); err != nil {
		return User{}, err
	}
	if len(location) > 0 {
		u.Location = location
	}
	if googleSub.Valid {
		u.GoogleSub = googleSub.String
	}
	if resetCode.Valid {
		u.ResetCodeHash = resetCode.String
	}
	if resetExpires.Valid {
		t := resetExpires.Time
		u.ResetExpiresAt = &t
	}
	return u, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// translateUnique maps unique-constraint violations to domain errors.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return ErrEmailTaken
	case strings.Contains(pgErr.ConstraintName, "username"):
		return ErrUsernameTaken
	default:
		return err
	}
}

// Create inserts a new user.
func (r *PGRepo) Create(ctx context.Context, u User) error {
	const query = `
INSERT INTO users (
    id,
    first_name,
    last_name,
    username,
    email,
    password_hash,
    role,
    location,
    google_sub,
    picture_url,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var location any
	if len(u.Location) > 0 {
		location = string(u.Location)
	}
	_, err := r.DB.ExecContext(ctx, query,
		u.ID,
		u.FirstName,
		u.LastName,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.Role,
		location,
		nullableString(u.GoogleSub),
		u.PictureURL,
		u.CreatedAt,
	)
	if err != nil {
		return translateUnique(err)
	}
	return nil
}

func (r *PGRepo) getOne(ctx context.Context, where string, arg any) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, "email = $1", email)
}

func (r *PGRepo) GetByGoogleSub(ctx context.Context, sub string) (User, error) {
	if sub == "" {
		return User{}, ErrNotFound
	}
	return r.getOne(ctx, "google_sub = $1", sub)
}

func (r *PGRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

// ListByRole returns users with role, oldest first.
func (r *PGRepo) ListByRole(ctx context.Context, role string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
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

func (r *PGRepo) LinkGoogle(ctx context.Context, id, sub, pictureURL string) error {
	const query = `
UPDATE users
SET google_sub = $1,
    picture_url = CASE WHEN $2 = '' THEN picture_url ELSE $2 END
WHERE id = $3`
	return r.exec(ctx, query, sub, pictureURL, id)
}

func (r *PGRepo) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return r.exec(ctx, `UPDATE users SET reset_code = $1, reset_expires_at = $2 WHERE id = $3`, codeHash, expiresAt, id)
}

func (r *PGRepo) ClearResetCode(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET reset_code = NULL, reset_expires_at = NULL WHERE id = $1`, id)
}

// UpdatePassword replaces the hash and clears any outstanding reset code.
func (r *PGRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $1, reset_code = NULL, reset_expires_at = NULL WHERE id = $2`, passwordHash, id)
}

func (r *PGRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PGRepo) AddLoginLog(ctx context.Context, l LoginLog) error {
	const query = `
INSERT INTO login_logs (id, user_id, email, ip_address, user_agent, success, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		l.ID,
		nullableString(l.UserID),
		l.Email,
		l.IPAddress,
		l.UserAgent,
		l.Success,
		l.CreatedAt,
	)
	return err
}

// ListLoginLogs returns login attempts newest first.
func (r *PGRepo) ListLoginLogs(ctx context.Context) ([]LoginLog, error) {
	const query = `
SELECT id, user_id, email, ip_address, user_agent, success, created_at
FROM login_logs
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LoginLog, 0)
	for rows.Next() {
		var l LoginLog
		var userID sql.NullString
		if err := rows.Scan(&l.ID, &userID, &l.Email, &l.IPAddress, &l.UserAgent, &l.Success, &l.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			l.UserID = userID.String
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepo) AddContactMessage(ctx context.Context, m ContactMessage) error {
	const query = `
INSERT INTO contact_messages (id, name, email, subject, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query, m.ID, m.Name, m.Email, m.Subject, m.Message, m.CreatedAt)
	return err
}

var _ Repo = (*PGRepo)(nil)
