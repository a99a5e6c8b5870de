package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"modellion/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the contract the importer and image service depend on. Put
// stores a local file under a logical name and returns the stable stored
// reference; Remove is best-effort; PresignedURL returns a time-limited
// download link.
type ObjectStore interface {
	Put(ctx context.Context, localPath, objectName string) (string, error)
	Remove(ctx context.Context, storedPath string) error
	PresignedURL(ctx context.Context, storedPath string, ttl time.Duration) (string, error)
}

type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the configured MinIO endpoint and ensures the
// bucket exists
func NewMinioStore(ctx context.Context, cfg config.MinioConfig) (ObjectStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &minioStore{client: client, bucket: cfg.Bucket}, nil
}

// Put uploads a local file; the returned reference is "bucket/objectName"
func (s *minioStore) Put(ctx context.Context, localPath, objectName string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to store object %s: %w", objectName, err)
	}
	return fmt.Sprintf("%s/%s", s.bucket, objectName), nil
}

// Remove deletes the object behind a stored reference
func (s *minioStore) Remove(ctx context.Context, storedPath string) error {
	objectName := s.normalize(storedPath)
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectName, err)
	}
	return nil
}

// PresignedURL returns a temporary download URL for a stored reference
func (s *minioStore) PresignedURL(ctx context.Context, storedPath string, ttl time.Duration) (string, error) {
	objectName := s.normalize(storedPath)
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", objectName, err)
	}
	return u.String(), nil
}

// Stored references may or may not carry the bucket prefix; strip it so both
// forms resolve to the same object
func (s *minioStore) normalize(storedPath string) string {
	return strings.TrimPrefix(storedPath, s.bucket+"/")
}
