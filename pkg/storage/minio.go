package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultLinkExpiry = 24 * time.Hour

// Storage is the archive behind measurement exports
type Storage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// UploadResult describes a stored export
type UploadResult struct {
	Key         string
	Location    string    // bucket path; reading it needs credentials
	URL         string    // signed download link
	ExpiresAt   time.Time // of URL
	Size        int64
	ContentType string
}

// MinIOStorage keeps exports in a private bucket and hands out signed links
type MinIOStorage struct {
	client     *minio.Client
	bucket     string
	location   string
	linkExpiry time.Duration
}

type Config struct {
	Endpoint   string
	PublicURL  string // base used for Location instead of the endpoint
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	LinkExpiry time.Duration
}

// NewMinIO connects to MinIO and makes sure the export bucket exists.
// The bucket gets no public policy.
func NewMinIO(ctx context.Context, cfg Config) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT not set")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Printf("📦 Created export bucket: %s", cfg.Bucket)
	}

	expiry := cfg.LinkExpiry
	if expiry <= 0 {
		expiry = defaultLinkExpiry
	}
	return &MinIOStorage{
		client:     client,
		bucket:     cfg.Bucket,
		location:   bucketBase(cfg.PublicURL, cfg.Endpoint, cfg.Bucket, cfg.UseSSL),
		linkExpiry: expiry,
	}, nil
}

// Put uploads an export and signs a download link for it
func (s *MinIOStorage) Put(ctx context.Context, key, contentType string, data []byte) (*UploadResult, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.linkExpiry, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to sign export link: %w", err)
	}

	return &UploadResult{
		Key:         key,
		Location:    s.location + "/" + key,
		URL:         signed.String(),
		ExpiresAt:   time.Now().Add(s.linkExpiry).UTC(),
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

// Delete removes an export
func (s *MinIOStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func bucketBase(publicURL, endpoint, bucket string, useSSL bool) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/") + "/" + bucket
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
}
