package resumes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Resume
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Resume),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) Create(ctx context.Context, res Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.ID == "" {
		return ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[res.ID]; exists {
		return ErrInvalidInput
	}
	r.data[res.ID] = cloneResume(res)
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.data[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return cloneResume(res), nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	return r.filter(ctx, func(res Resume) bool { return res.UserID == userID })
}

func (r *MemoryRepo) ListByEmail(ctx context.Context, email string) ([]Resume, error) {
	return r.filter(ctx, func(res Resume) bool { return res.Email == email })
}

func (r *MemoryRepo) ListAll(ctx context.Context) ([]Resume, error) {
	return r.filter(ctx, func(Resume) bool { return true })
}

func (r *MemoryRepo) Update(ctx context.Context, id string, p Patch) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.data[id]
	if !ok {
		return Resume{}, ErrNotFound
	}
	p.apply(&res)
	res.UpdatedAt = r.now()
	r.data[id] = cloneResume(res)
	return cloneResume(res), nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// CountByUser returns resume counts keyed by user id.
func (r *MemoryRepo) CountByUser(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, res := range r.data {
		out[res.UserID]++
	}
	return out, nil
}

func (r *MemoryRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, res := range r.data {
		if res.UserID == userID {
			delete(r.data, id)
			n++
		}
	}
	return n, nil
}

// filter returns matches newest first.
func (r *MemoryRepo) filter(ctx context.Context, keep func(Resume) bool) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Resume, 0)
	for _, res := range r.data {
		if keep(res) {
			out = append(out, cloneResume(res))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneResume(r Resume) Resume {
	if r.Details != nil {
		r.Details = append([]byte(nil), r.Details...)
	}
	return r
}

var _ Repo = (*MemoryRepo)(nil)
