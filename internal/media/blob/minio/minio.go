// Package minio provides a blob.Store backend over any S3-compatible object
// store (MinIO, AWS S3, ArvanCloud). Buckets are created on startup with a
// public-read policy: uploaded media is world-readable by design.
package minio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Misaka450/baoandkai-sub000/internal/media/blob"
)

// Config holds the connection settings for the S3-compatible backend.
type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	PublicBase string
	UseSSL     bool
}

// Store implements blob.Store over minio-go.
type Store struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// New creates the client, ensures the bucket exists, and applies the
// public-read bucket policy.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
		logger.Info("created blob bucket", slog.String("bucket", cfg.Bucket))
	}

	if err := client.SetBucketPolicy(ctx, cfg.Bucket, publicReadPolicy(cfg.Bucket)); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}

	return &Store{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: strings.TrimRight(cfg.PublicBase, "/"),
	}, nil
}

// Put streams r to the bucket under key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classify(key, err)
	}
	return nil
}

// Delete removes the object at key. The backend removes silently whether or
// not the object exists, so absence is probed first to honor the
// blob.ErrNotFound contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		}
		return classify(key, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classify(key, err)
	}
	return nil
}

// PublicURL returns the browser-accessible URL for key.
func (s *Store) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

// Ping verifies the bucket is reachable. Used by the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// classify maps minio errors onto the blob sentinel taxonomy.
func classify(key string, err error) error {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		switch {
		case resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("%w: %s", blob.ErrNotFound, key)
		case resp.Code == "EntityTooLarge" || resp.Code == "QuotaExceeded" || resp.StatusCode == http.StatusInsufficientStorage:
			return fmt.Errorf("%w: %s", blob.ErrQuotaExceeded, key)
		case resp.Code == "XMinioInvalidObjectName" || resp.StatusCode == http.StatusBadRequest:
			return fmt.Errorf("%w: %s", blob.ErrInvalidKey, key)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", blob.ErrStoreUnavailable, key, err)
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	return errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound)
}

// publicReadPolicy returns the bucket policy JSON allowing anonymous GET on
// every object in bucket.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
