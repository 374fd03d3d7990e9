package upload

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"school-api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ImageStore saves an object under key and returns the URL clients fetch it from.
type ImageStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store serves objects from cfg.PublicBaseURL, or path-style from the endpoint.
func NewS3Store(client *s3.Client, cfg config.S3Config) *S3Store {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: base}
}

func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// LocalStore writes objects below dir and serves them under prefix.
type LocalStore struct {
	dir    string
	prefix string
}

func NewLocalStore(cfg config.StorageConfig) *LocalStore {
	return &LocalStore{dir: cfg.LocalDir, prefix: strings.TrimRight(cfg.PublicPrefix, "/")}
}

func (l *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	finalPath := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(finalPath), "upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), finalPath); err != nil {
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}
	return l.prefix + "/" + key, nil
}
