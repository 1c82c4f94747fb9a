package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gemini-studio/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	stor, err := NewLocalStorage(dir)
	require.NoError(t, err)

	data := []byte("fake png bytes")
	result, err := stor.Store(ctx, data, "image/png", "upload")
	require.NoError(t, err)

	assert.Regexp(t, `^upload_[0-9a-f]{16}\.png$`, result.ObjectKey)
	assert.Len(t, result.ContentHash, 64)
	assert.Equal(t, int64(len(data)), result.Size)
	assert.Nil(t, result.ExpiresAt)
	assert.Equal(t, filepath.Join(dir, result.ObjectKey), result.Location)
	assert.False(t, stor.IsRemote())

	got, err := stor.Retrieve(ctx, result.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	again, err := stor.Store(ctx, data, "image/png", "upload")
	require.NoError(t, err)
	assert.Equal(t, result.ObjectKey, again.ObjectKey)

	require.NoError(t, stor.Delete(ctx, result.ObjectKey))
	_, err = stor.Retrieve(ctx, result.ObjectKey)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, stor.Delete(ctx, result.ObjectKey))
}

func TestLocalStorageStoreAt(t *testing.T) {
	ctx := context.Background()
	stor, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	result, err := stor.StoreAt(ctx, "brand-assets/example.com/logos/logo_0.jpg", []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "brand-assets/example.com/logos/logo_0.jpg", result.ObjectKey)
	_, err = os.Stat(result.Location)
	assert.NoError(t, err)

	_, err = stor.StoreAt(ctx, "../escape.txt", []byte("x"), "text/plain")
	assert.Error(t, err)
	assert.NoError(t, stor.Check(ctx))
}

func TestExtensionAndMIME(t *testing.T) {
	for _, mime := range []string{"image/png", "image/jpeg", "image/webp", "image/gif", "video/mp4", "video/webm", "application/json"} {
		ext := ExtensionFromMIME(mime)
		require.NotEmpty(t, ext, mime)
		assert.Equal(t, mime, MIMEFromExtension("file"+ext))
	}
	assert.Equal(t, "", ExtensionFromMIME("text/plain"))
	assert.Equal(t, "image/jpeg", MIMEFromExtension("PHOTO.JPEG"))
	assert.Equal(t, "application/octet-stream", MIMEFromExtension("notes"))
}

func TestDatedKey(t *testing.T) {
	now := time.Date(2024, 12, 23, 10, 0, 0, 0, time.UTC)
	key := datedKey(now, "veo_video", "0123456789abcdef0123", "video/mp4")
	assert.Equal(t, "2024/12/23/veo_video_0123456789abcdef.mp4", key)
}

func TestParseEndpoint(t *testing.T) {
	host, ssl := parseEndpoint("https://s3.amazonaws.com", false)
	assert.Equal(t, "s3.amazonaws.com", host)
	assert.True(t, ssl)

	host, ssl = parseEndpoint("http://minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.False(t, ssl)

	host, ssl = parseEndpoint("minio:9000", true)
	assert.Equal(t, "minio:9000", host)
	assert.True(t, ssl)
}

func TestSelectBackend(t *testing.T) {
	assert.Equal(t, "local", selectBackend("", false, false))
	assert.Equal(t, "firebase", selectBackend("", false, true))
	assert.Equal(t, "s3", selectBackend("", true, true))
	assert.Equal(t, "local", selectBackend("local", true, true))
}

func TestNewStorageLocal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &common.Config{OutputDir: t.TempDir()}

	stor, err := NewStorage(context.Background(), cfg, nil, "", logger)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, stor)

	cfg.StorageBackend = "firebase"
	_, err = NewStorage(context.Background(), cfg, nil, "", logger)
	assert.Error(t, err)
}
