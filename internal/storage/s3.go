package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Storage implements Storage interface for S3/MinIO
type S3Storage struct {
	client          *minio.Client
	bucket          string
	presignTTL      time.Duration
	objectTTL       time.Duration
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	logger          *slog.Logger
}

// S3Config holds S3 storage configuration
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	UseSSL          bool
	PresignTTL      time.Duration
	ObjectTTL       time.Duration
	CleanupInterval time.Duration
}

// parseEndpoint extracts host:port from an endpoint that may include a protocol
func parseEndpoint(endpoint string, defaultUseSSL bool) (host string, useSSL bool) {
	useSSL = defaultUseSSL

	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return parsed.Host, parsed.Scheme == "https"
	}
	return endpoint, useSSL
}

// NewS3Storage connects to the bucket, creating it if needed, and starts the
// expired-object cleanup loop.
func NewS3Storage(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Storage, error) {
	endpoint, useSSL := parseEndpoint(cfg.Endpoint, cfg.UseSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		logger.Info("creating S3 bucket", "bucket", cfg.Bucket)
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	s := &S3Storage{
		client:          client,
		bucket:          cfg.Bucket,
		presignTTL:      cfg.PresignTTL,
		objectTTL:       cfg.ObjectTTL,
		cleanupInterval: cfg.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		logger:          logger,
	}

	if s.cleanupInterval > 0 && s.objectTTL > 0 {
		go s.startCleanupRoutine()
	}

	return s, nil
}

// Store uploads content under YYYY/MM/DD/prefix_hash.ext
func (s *S3Storage) Store(ctx context.Context, data []byte, mimeType string, prefix string) (*StorageResult, error) {
	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])

	result, err := s.StoreAt(ctx, datedKey(time.Now().UTC(), prefix, contentHash, mimeType), data, mimeType)
	if err != nil {
		return nil, err
	}
	result.ContentHash = contentHash
	return result, nil
}

// StoreAt uploads content and returns a presigned GET URL
func (s *S3Storage) StoreAt(ctx context.Context, objectKey string, data []byte, mimeType string) (*StorageResult, error) {
	now := time.Now().UTC()
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
		UserMetadata: map[string]string{
			"created-at": now.Format(time.RFC3339),
			"expires-at": now.Add(s.objectTTL).Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, s.presignTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	expiresAt := now.Add(s.presignTTL)

	return &StorageResult{
		Location:  presignedURL.String(),
		ObjectKey: objectKey,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
		ExpiresAt: &expiresAt,
	}, nil
}

// Retrieve downloads an object
func (s *S3Storage) Retrieve(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, objectKey)
		}
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

// Delete removes an object from S3
func (s *S3Storage) Delete(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *S3Storage) Check(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("s3 unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("s3 bucket %s does not exist", s.bucket)
	}
	return nil
}

// Close stops the cleanup routine
func (s *S3Storage) Close() error {
	close(s.stopCleanup)
	return nil
}

// IsRemote returns true for S3 storage
func (s *S3Storage) IsRemote() bool {
	return true
}

// startCleanupRoutine periodically cleans up expired objects
func (s *S3Storage) startCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	s.logger.Info("S3 cleanup routine started", "interval", s.cleanupInterval, "ttl", s.objectTTL)

	for {
		select {
		case <-ticker.C:
			s.cleanupExpiredObjects()
		case <-s.stopCleanup:
			s.logger.Info("S3 cleanup routine stopped")
			return
		}
	}
}

// cleanupExpiredObjects removes objects that have exceeded their TTL
func (s *S3Storage) cleanupExpiredObjects() {
	ctx := context.Background()
	now := time.Now().UTC()
	deletedCount := 0
	errorCount := 0

	objectCh := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			s.logger.Warn("error listing objects", "error", object.Err)
			errorCount++
			continue
		}

		if now.Sub(object.LastModified) > s.objectTTL {
			if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
				s.logger.Warn("failed to delete expired object", "key", object.Key, "error", err)
				errorCount++
			} else {
				deletedCount++
			}
		}
	}

	if deletedCount > 0 || errorCount > 0 {
		s.logger.Info("S3 cleanup completed", "deleted", deletedCount, "errors", errorCount)
	}
}
