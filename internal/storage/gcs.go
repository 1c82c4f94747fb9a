package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSStorage stores objects in the Firebase Storage bucket and hands out V4
// signed URLs.
type GCSStorage struct {
	bucket     *gcs.BucketHandle
	bucketName string
	signedTTL  time.Duration
	logger     *slog.Logger
}

func NewGCSStorage(bucket *gcs.BucketHandle, bucketName string, signedTTL time.Duration, logger *slog.Logger) *GCSStorage {
	return &GCSStorage{
		bucket:     bucket,
		bucketName: bucketName,
		signedTTL:  signedTTL,
		logger:     logger,
	}
}

func (s *GCSStorage) Store(ctx context.Context, data []byte, mimeType string, prefix string) (*StorageResult, error) {
	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])

	result, err := s.StoreAt(ctx, datedKey(time.Now().UTC(), prefix, contentHash, mimeType), data, mimeType)
	if err != nil {
		return nil, err
	}
	result.ContentHash = contentHash
	return result, nil
}

// StoreAt uploads to objectKey. The signed URL is best effort: credentials
// without a private key cannot sign, in which case Location is the gs:// URI.
func (s *GCSStorage) StoreAt(ctx context.Context, objectKey string, data []byte, mimeType string) (*StorageResult, error) {
	w := s.bucket.Object(objectKey).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to upload to firebase storage: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to upload to firebase storage: %w", err)
	}

	uri := fmt.Sprintf("gs://%s/%s", s.bucketName, objectKey)
	result := &StorageResult{
		Location:  uri,
		ObjectKey: objectKey,
		URI:       uri,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
	}

	expiresAt := time.Now().UTC().Add(s.signedTTL)
	signed, err := s.bucket.SignedURL(objectKey, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expiresAt,
	})
	if err != nil {
		s.logger.Warn("failed to sign storage URL", "key", objectKey, "error", err)
		return result, nil
	}
	result.Location = signed
	result.ExpiresAt = &expiresAt
	return result, nil
}

func (s *GCSStorage) Retrieve(ctx context.Context, objectKey string) ([]byte, error) {
	r, err := s.bucket.Object(objectKey).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %w", err)
	}
	return data, nil
}

func (s *GCSStorage) Delete(ctx context.Context, objectKey string) error {
	err := s.bucket.Object(objectKey).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

func (s *GCSStorage) Check(ctx context.Context) error {
	if _, err := s.bucket.Attrs(ctx); err != nil {
		return fmt.Errorf("firebase storage bucket %s unavailable: %w", s.bucketName, err)
	}
	return nil
}

func (s *GCSStorage) Close() error {
	return nil
}

func (s *GCSStorage) IsRemote() bool {
	return true
}
