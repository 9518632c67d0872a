package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	users    map[string]User
	logs     []LoginLog
	contacts []ContactMessage
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{users: make(map[string]User)}
}

func (r *MemoryRepo) Create(ctx context.Context, u User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
		if existing.Username == u.Username {
			return ErrUsernameTaken
		}
	}
	r.users[u.ID] = u
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.find(ctx, func(u User) bool { return u.ID == id })
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.find(ctx, func(u User) bool { return u.Email == email })
}

func (r *MemoryRepo) GetByGoogleSub(ctx context.Context, sub string) (User, error) {
	if sub == "" {
		return User{}, ErrNotFound
	}
	return r.find(ctx, func(u User) bool { return u.GoogleSub == sub })
}

func (r *MemoryRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.find(ctx, func(u User) bool { return u.Username == username })
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// ListByRole returns users with role, oldest first.
func (r *MemoryRepo) ListByRole(ctx context.Context, role string) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) LinkGoogle(ctx context.Context, id, sub, pictureURL string) error {
	return r.update(ctx, id, func(u *User) {
		u.GoogleSub = sub
		if pictureURL != "" {
			u.PictureURL = pictureURL
		}
	})
}

func (r *MemoryRepo) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	return r.update(ctx, id, func(u *User) {
		u.ResetCodeHash = codeHash
		exp := expiresAt
		u.ResetExpiresAt = &exp
	})
}

func (r *MemoryRepo) ClearResetCode(ctx context.Context, id string) error {
	return r.update(ctx, id, func(u *User) {
		u.ResetCodeHash = ""
		u.ResetExpiresAt = nil
	})
}

// UpdatePassword replaces the hash and clears any outstanding reset code.
func (r *MemoryRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, func(u *User) {
		u.PasswordHash = passwordHash
		u.ResetCodeHash = ""
		u.ResetExpiresAt = nil
	})
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryRepo) AddLoginLog(ctx context.Context, l LoginLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.logs = append(r.logs, l)
	r.mu.Unlock()
	return nil
}

// ListLoginLogs returns login attempts newest first.
func (r *MemoryRepo) ListLoginLogs(ctx context.Context) ([]LoginLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]LoginLog, len(r.logs))
	copy(out, r.logs)
	r.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) AddContactMessage(ctx context.Context, m ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.contacts = append(r.contacts, m)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepo) find(ctx context.Context, match func(User) bool) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
