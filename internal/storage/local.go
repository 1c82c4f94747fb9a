package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage implements Storage interface for local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Store saves content to the local filesystem as prefix_hash.ext
func (s *LocalStorage) Store(ctx context.Context, data []byte, mimeType string, prefix string) (*StorageResult, error) {
	hash := sha256.Sum256(data)
	contentHash := hex.EncodeToString(hash[:])

	result, err := s.StoreAt(ctx, contentName(prefix, contentHash, mimeType), data, mimeType)
	if err != nil {
		return nil, err
	}
	result.ContentHash = contentHash
	return result, nil
}

// StoreAt writes content under objectKey, creating parent directories.
func (s *LocalStorage) StoreAt(ctx context.Context, objectKey string, data []byte, mimeType string) (*StorageResult, error) {
	outputPath, err := s.path(objectKey)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &StorageResult{
		Location:  outputPath,
		ObjectKey: objectKey,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
	}, nil
}

// Retrieve reads a stored file back
func (s *LocalStorage) Retrieve(ctx context.Context, objectKey string) ([]byte, error) {
	filePath, err := s.path(objectKey)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, objectKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Delete removes a file from local storage
func (s *LocalStorage) Delete(ctx context.Context, objectKey string) error {
	filePath, err := s.path(objectKey)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalStorage) Check(ctx context.Context) error {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return fmt.Errorf("storage directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage path %s is not a directory", s.baseDir)
	}
	return nil
}

// Close is a no-op for local storage
func (s *LocalStorage) Close() error {
	return nil
}

// IsRemote returns false for local storage
func (s *LocalStorage) IsRemote() bool {
	return false
}

// path maps an object key into baseDir, rejecting keys that escape it.
func (s *LocalStorage) path(objectKey string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(objectKey))
	if cleaned == "." || filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key: %q", objectKey)
	}
	return filepath.Join(s.baseDir, cleaned), nil
}
