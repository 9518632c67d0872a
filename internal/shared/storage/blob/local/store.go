package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"cvpro-backend/internal/shared/storage/blob"
)

// Store implements blob.Store using the local filesystem.
type Store struct {
	baseDir string
}

// New creates a new local blob store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Put writes the reader to disk under a generated id.
func (s *Store) Put(ctx context.Context, r io.Reader, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := blob.NewID(filename)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	fullPath := filepath.Join(s.baseDir, id)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(fullPath)
		return "", fmt.Errorf("write body: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return id, nil
}

// Get opens a stored blob for reading.
func (s *Store) Get(ctx context.Context, id string) (blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return blob.Blob{}, err
	}
	if !blob.ValidID(id) {
		return blob.Blob{}, blob.ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.baseDir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return blob.Blob{}, blob.ErrNotFound
		}
		return blob.Blob{}, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return blob.Blob{}, err
	}

	var sniff [512]byte
	n, readErr := io.ReadFull(f, sniff[:])
	if readErr != nil && readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
		f.Close()
		return blob.Blob{}, fmt.Errorf("read sniff: %w", readErr)
	}
	head := append([]byte(nil), sniff[:n]...)

	return blob.Blob{
		ID:          id,
		Filename:    blob.FilenameFromID(id),
		ContentType: http.DetectContentType(head),
		Size:        info.Size(),
		Body: readCloser{
			Reader: io.MultiReader(bytes.NewReader(head), f),
			Closer: f,
		},
	}, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !blob.ValidID(id) {
		return nil
	}
	err := os.Remove(filepath.Join(s.baseDir, id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

var _ blob.Store = (*Store)(nil)
