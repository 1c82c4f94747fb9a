package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned by Retrieve when the object does not exist.
var ErrNotFound = errors.New("object not found")

// StorageResult represents the result of a storage operation
type StorageResult struct {
	// Location is the access URL/path for the stored content
	// For local storage: file path
	// For S3: presigned URL
	// For Firebase Storage: V4 signed URL
	Location string

	// ObjectKey is the storage path (e.g., "2024/12/23/upload_abc123.png")
	ObjectKey string

	// URI is the gs:// address when the object lives in Cloud Storage
	URI string

	// ContentHash is the SHA256 hash of the content (first 16 chars used in filename)
	ContentHash string

	// ExpiresAt is the expiration time for the signed URL (nil for local storage)
	ExpiresAt *time.Time

	// MIMEType is the content type (e.g., "image/png", "video/mp4")
	MIMEType string

	// Size is the content size in bytes
	Size int64
}

// Storage defines the interface for storing uploaded and generated content
type Storage interface {
	// Store saves content under a content-addressed name
	// - data: the raw bytes to store
	// - mimeType: content type (e.g., "image/png", "video/mp4")
	// - prefix: prefix for the filename (e.g., "upload", "veo_video")
	Store(ctx context.Context, data []byte, mimeType string, prefix string) (*StorageResult, error)

	// StoreAt saves content under an exact object key
	StoreAt(ctx context.Context, objectKey string, data []byte, mimeType string) (*StorageResult, error)

	// Retrieve reads an object back by its key
	Retrieve(ctx context.Context, objectKey string) ([]byte, error)

	// Delete removes an object by its key
	Delete(ctx context.Context, objectKey string) error

	// Check verifies the backend is reachable
	Check(ctx context.Context) error

	// Close cleans up any resources (stops cleanup goroutines, etc.)
	Close() error

	// IsRemote returns true if storage is remote (S3 or Firebase), false for local
	IsRemote() bool
}

// ExtensionFromMIME returns the file extension for a given MIME type
func ExtensionFromMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "application/json":
		return ".json"
	default:
		return ""
	}
}

// MIMEFromExtension is the inverse of ExtensionFromMIME for file names.
func MIMEFromExtension(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".mp4":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// datedKey builds the YYYY/MM/DD/prefix_hash.ext layout used by remote backends.
func datedKey(now time.Time, prefix, contentHash, mimeType string) string {
	return path.Join(now.Format("2006/01/02"), contentName(prefix, contentHash, mimeType))
}

func contentName(prefix, contentHash, mimeType string) string {
	return prefix + "_" + contentHash[:16] + ExtensionFromMIME(mimeType)
}
