package minio

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cvpro-backend/internal/shared/storage/blob"
)

// Config holds connection settings for a MinIO (or S3-compatible) endpoint.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store implements blob.Store on a MinIO bucket.
type Store struct {
	client *minio.Client
	bucket string
}

// New creates the client. No network call is made until EnsureBucket or
// the first operation.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Put uploads r under a generated id. Size is unknown so the client streams
// multipart.
func (s *Store) Put(ctx context.Context, r io.Reader, filename string) (string, error) {
	id, err := blob.NewID(filename)
	if err != nil {
		return "", err
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.bucket, id, r, -1, minio.PutObjectOptions{
		ContentType: ct,
	}); err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	return id, nil
}

// Get opens a stored blob.
func (s *Store) Get(ctx context.Context, id string) (blob.Blob, error) {
	if !blob.ValidID(id) {
		return blob.Blob{}, blob.ErrNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return blob.Blob{}, translateErr(err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return blob.Blob{}, translateErr(err)
	}
	return blob.Blob{
		ID:          id,
		Filename:    blob.FilenameFromID(id),
		ContentType: info.ContentType,
		Size:        info.Size,
		Body:        obj,
	}, nil
}

// Delete removes a stored blob.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !blob.ValidID(id) {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func translateErr(err error) error {
	if isNotFound(err) {
		return blob.ErrNotFound
	}
	return fmt.Errorf("failed to get file: %w", err)
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}

var _ blob.Store = (*Store)(nil)
