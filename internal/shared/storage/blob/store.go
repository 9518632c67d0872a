package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"cvpro-backend/internal/shared/util"
)

// ErrNotFound is returned by Get when no blob has the given id.
var ErrNotFound = errors.New("blob not found")

// Blob is an opened binary object. Callers must close Body.
type Blob struct {
	ID          string
	Filename    string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// Store saves and serves binary attachments addressed by generated ids.
type Store interface {
	Put(ctx context.Context, r io.Reader, filename string) (string, error)
	Get(ctx context.Context, id string) (Blob, error)
	Delete(ctx context.Context, id string) error
}

// NewID returns "<uuid>_<sanitized filename>" so the original name can be
// recovered from the id alone.
func NewID(filename string) (string, error) {
	name, err := util.SanitizeFileName(filename)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	return uuid.NewString() + "_" + name, nil
}

// FilenameFromID returns the filename part of an id produced by NewID.
func FilenameFromID(id string) string {
	if i := strings.IndexByte(id, '_'); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}

// ValidID rejects ids that could escape a storage namespace.
func ValidID(id string) bool {
	if id == "" || strings.Contains(id, "..") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
