package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"cvpro-backend/internal/shared/storage/blob"
	"cvpro-backend/internal/shared/telemetry"
)

// Image is an uploaded image attachment.
type Image struct {
	Filename string
	Body     io.Reader
}

// CreateInput carries the fields of a new resume.
type CreateInput struct {
	UserID     string
	Email      string
	ResumeData string
	Image      *Image
}

// UpdateInput carries the fields present in an update request.
type UpdateInput struct {
	Title      *string
	UserID     *string
	ResumeData *string
	Image      *Image
}

// Service contains business logic for resumes and their images.
type Service struct {
	Repo  Repo
	Blobs blob.Store
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repo, blobs blob.Store) *Service {
	return &Service{Repo: repo, Blobs: blobs}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// decodeDetails checks that raw is a JSON document and returns it compacted.
// Empty input yields an empty object.
func decodeDetails(raw string) (json.RawMessage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return json.RawMessage("{}"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return buf.Bytes(), nil
}

// Create stores a new resume and its optional image.
func (s *Service) Create(ctx context.Context, in CreateInput) (Resume, error) {
	details, err := decodeDetails(in.ResumeData)
	if err != nil {
		return Resume{}, err
	}

	now := s.clock()
	res := Resume{
		ID:        uuid.NewString(),
		UserID:    strings.TrimSpace(in.UserID),
		Email:     strings.TrimSpace(in.Email),
		Details:   details,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if in.Image != nil {
		id, err := s.Blobs.Put(ctx, in.Image.Body, in.Image.Filename)
		if err != nil {
			return Resume{}, fmt.Errorf("store image: %w", err)
		}
		res.ImageID = id
	}

	if err := s.Repo.Create(ctx, res); err != nil {
		s.dropImage(ctx, res.ImageID)
		return Resume{}, fmt.Errorf("create resume: %w", err)
	}
	return res, nil
}

// Get returns one resume.
func (s *Service) Get(ctx context.Context, id string) (Resume, error) {
	if strings.TrimSpace(id) == "" {
		return Resume{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// ListByUser returns a user's resumes.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// ListByEmail returns resumes saved under an email.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Resume, error) {
	return s.Repo.ListByEmail(ctx, email)
}

// ListAll returns every resume.
func (s *Service) ListAll(ctx context.Context) ([]Resume, error) {
	return s.Repo.ListAll(ctx)
}

// Update replaces the provided fields. A new image replaces the old one,
// which is deleted once the row points at the new id.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Resume, error) {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Resume{}, err
	}

	var p Patch
	p.Title = in.Title
	p.UserID = in.UserID
	if in.ResumeData != nil {
		details, err := decodeDetails(*in.ResumeData)
		if err != nil {
			return Resume{}, err
		}
		p.Details = details
	}
	if p.empty() && in.Image == nil {
		return Resume{}, ErrNoFields
	}

	if in.Image != nil {
		newID, err := s.Blobs.Put(ctx, in.Image.Body, in.Image.Filename)
		if err != nil {
			return Resume{}, fmt.Errorf("store image: %w", err)
		}
		p.ImageID = &newID
	}

	updated, err := s.Repo.Update(ctx, id, p)
	if err != nil {
		if p.ImageID != nil {
			s.dropImage(ctx, *p.ImageID)
		}
		return Resume{}, err
	}
	if p.ImageID != nil && existing.ImageID != "" && existing.ImageID != *p.ImageID {
		s.dropImage(ctx, existing.ImageID)
	}
	return updated, nil
}

// Delete removes the resume image, then the resume. A missing image is
// ignored.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if res.ImageID != "" {
		if err := s.Blobs.Delete(ctx, res.ImageID); err != nil && !errors.Is(err, blob.ErrNotFound) {
			return fmt.Errorf("delete image: %w", err)
		}
	}
	return s.Repo.Delete(ctx, id)
}

// DeleteByUser removes every resume a user owns along with their images.
func (s *Service) DeleteByUser(ctx context.Context, userID string) (int, error) {
	list, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, res := range list {
		s.dropImage(ctx, res.ImageID)
	}
	return s.Repo.DeleteByUser(ctx, userID)
}

// CountByUser returns resume counts keyed by user id.
func (s *Service) CountByUser(ctx context.Context) (map[string]int, error) {
	return s.Repo.CountByUser(ctx)
}

// Image opens a stored image. Callers must close the body.
func (s *Service) Image(ctx context.Context, imageID string) (blob.Blob, error) {
	return s.Blobs.Get(ctx, imageID)
}

func (s *Service) dropImage(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.Blobs.Delete(ctx, id); err != nil && !errors.Is(err, blob.ErrNotFound) {
		telemetry.Warn("resumes.image.delete_failed", map[string]any{"image_id": id, "err": err.Error()})
	}
}
