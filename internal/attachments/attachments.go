// Package attachments stores files uploaded with posts in S3-compatible
// object storage.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Clark-Hu/gymblog/internal/domain"
)

// ErrForeignURL is returned when asked to remove a file this store did not issue.
var ErrForeignURL = errors.New("attachments: url not owned by this store")

// Uploader is what post handlers depend on.
type Uploader interface {
	Upload(ctx context.Context, fileName, contentType string, body io.Reader, size int64) (domain.Attachment, error)
	Remove(ctx context.Context, att domain.Attachment) error
}

// Config describes the bucket and how its objects are addressed publicly.
type Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

// MinioStore implements Uploader on MinIO or any S3 endpoint.
type MinioStore struct {
	cfg    Config
	client *minio.Client
}

// NewMinioStore builds the client. Call EnsureBucket before first use.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	if cfg.PublicBaseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		cfg.PublicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, endpoint, cfg.Bucket)
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &MinioStore{cfg: cfg, client: client}, nil
}

// EnsureBucket creates the bucket if it does not exist.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", s.cfg.Bucket, err)
	}
	return nil
}

// Upload stores body under a fresh key and returns its public address.
func (s *MinioStore) Upload(ctx context.Context, fileName, contentType string, body io.Reader, size int64) (domain.Attachment, error) {
	key := ObjectKey(uuid.NewString(), fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return domain.Attachment{FileName: fileName, FileURL: s.cfg.PublicBaseURL + "/" + key}, nil
}

// Remove deletes the object behind att.
func (s *MinioStore) Remove(ctx context.Context, att domain.Attachment) error {
	prefix := s.cfg.PublicBaseURL + "/"
	if !strings.HasPrefix(att.FileURL, prefix) {
		return ErrForeignURL
	}
	key := strings.TrimPrefix(att.FileURL, prefix)
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// ObjectKey places a file under posts/<id>/ with a sanitized base name.
func ObjectKey(id, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "file"
	}
	return "posts/" + id + "/" + name
}
