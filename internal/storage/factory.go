package storage

import (
	"context"
	"fmt"
	"log/slog"

	"gemini-studio/internal/common"

	gcs "cloud.google.com/go/storage"
)

// NewStorage creates the backend named by STORAGE_BACKEND. When it is empty, S3
// wins if configured, then the Firebase bucket if one is available, then the
// local directory.
func NewStorage(ctx context.Context, config *common.Config, bucket *gcs.BucketHandle, bucketName string, logger *slog.Logger) (Storage, error) {
	backend := selectBackend(config.StorageBackend, config.S3Enabled, bucket != nil)

	switch backend {
	case "s3":
		logger.Info("initializing S3 storage", "endpoint", config.S3Endpoint, "bucket", config.S3Bucket)
		return NewS3Storage(ctx, S3Config{
			Endpoint:        config.S3Endpoint,
			AccessKeyID:     config.S3AccessKeyID,
			SecretAccessKey: config.S3SecretAccessKey,
			Region:          config.S3Region,
			Bucket:          config.S3Bucket,
			UseSSL:          config.S3UseSSL,
			PresignTTL:      config.S3PresignTTL,
			ObjectTTL:       config.S3ObjectTTL,
			CleanupInterval: config.S3CleanupInterval,
		}, logger)
	case "firebase":
		if bucket == nil {
			return nil, fmt.Errorf("STORAGE_BACKEND=firebase requires FIREBASE_STORAGE_BUCKET and firebase credentials")
		}
		logger.Info("initializing firebase storage", "bucket", bucketName)
		return NewGCSStorage(bucket, bucketName, config.SignedURLTTL, logger), nil
	}

	logger.Info("initializing local storage", "directory", config.OutputDir)
	stor, err := NewLocalStorage(config.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create local storage: %w", err)
	}
	return stor, nil
}

func selectBackend(requested string, s3Enabled, haveBucket bool) string {
	if requested != "" {
		return requested
	}
	switch {
	case s3Enabled:
		return "s3"
	case haveBucket:
		return "firebase"
	default:
		return "local"
	}
}
