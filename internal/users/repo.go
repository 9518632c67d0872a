package users

import (
	"context"
	"time"
)

// Repo defines persistence operations for accounts, login logs and
// contact messages.
type Repo interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByGoogleSub(ctx context.Context, sub string) (User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	ListByRole(ctx context.Context, role string) ([]User, error)
	LinkGoogle(ctx context.Context, id, sub, pictureURL string) error
	SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error
	ClearResetCode(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error

	AddLoginLog(ctx context.Context, l LoginLog) error
	ListLoginLogs(ctx context.Context) ([]LoginLog, error)

	AddContactMessage(ctx context.Context, m ContactMessage) error
}
