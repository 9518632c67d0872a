package resumes

import "context"

// Repo defines persistence operations for resumes.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	GetByID(ctx context.Context, id string) (Resume, error)
	ListByUser(ctx context.Context, userID string) ([]Resume, error)
	ListByEmail(ctx context.Context, email string) ([]Resume, error)
	ListAll(ctx context.Context) ([]Resume, error)
	Update(ctx context.Context, id string, p Patch) (Resume, error)
	Delete(ctx context.Context, id string) error
	CountByUser(ctx context.Context) (map[string]int, error)
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
