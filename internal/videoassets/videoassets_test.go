package videoassets

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gemini-studio/internal/storage"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestReferencePath(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "veo_references/1700000000123_a.png", ReferencePath(now, "a", "image/png"))
	assert.Equal(t, "veo_references/1700000000123_b.webp", ReferencePath(now, "b", "image/WEBP"))
	assert.Equal(t, "veo_references/1700000000123_c.jpg", ReferencePath(now, "c", "image/jpeg"))
	assert.Equal(t, "veo_references/1700000000123_d.jpg", ReferencePath(now, "d", ""))
}

// memStorage records objects in memory and reports gs:// URIs like GCS does.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (m *memStorage) Store(ctx context.Context, data []byte, mimeType, prefix string) (*storage.StorageResult, error) {
	return m.StoreAt(ctx, prefix+storage.ExtensionFromMIME(mimeType), data, mimeType)
}

func (m *memStorage) StoreAt(ctx context.Context, objectKey string, data []byte, mimeType string) (*storage.StorageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey] = data
	return &storage.StorageResult{
		Location:  "https://storage.example/b/" + objectKey,
		ObjectKey: objectKey,
		URI:       "gs://b/" + objectKey,
		MIMEType:  mimeType,
		Size:      int64(len(data)),
	}, nil
}

func (m *memStorage) Retrieve(ctx context.Context, objectKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectKey]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStorage) Delete(ctx context.Context, objectKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectKey)
	return nil
}

func (m *memStorage) Check(ctx context.Context) error { return nil }
func (m *memStorage) Close() error                    { return nil }
func (m *memStorage) IsRemote() bool                  { return true }

// unreachableFirestore returns a client whose writes fail, which Archive
// tolerates by skipping the tracking record.
func unreachableFirestore(t *testing.T) *firestore.Client {
	t.Helper()
	t.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:1")
	fs, err := firestore.NewClient(context.Background(), "test-project")
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestArchiveConcurrentFramesGetDistinctObjects(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStorage()
	tr := NewFirestoreTracker(unreachableFirestore(t), store, logger)
	tr.now = func() time.Time { return time.UnixMilli(1792389216802) }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var first, last *Reference
	var g errgroup.Group
	g.Go(func() (err error) {
		first, err = tr.Archive(ctx, []byte("FIRST"), "image/png", "waves")
		return err
	})
	g.Go(func() (err error) {
		last, err = tr.Archive(ctx, []byte("LAST"), "image/png", "waves (Last Frame)")
		return err
	})
	require.NoError(t, g.Wait())

	assert.NotEqual(t, first.GCSURI, last.GCSURI)
	assert.NotEqual(t, first.StoragePath, last.StoragePath)
	assert.True(t, strings.HasPrefix(first.StoragePath, "veo_references/1792389216802_"))
	assert.Empty(t, first.DocID)
	require.Len(t, store.objects, 2)
	assert.Equal(t, []byte("FIRST"), store.objects[first.StoragePath])
	assert.Equal(t, []byte("LAST"), store.objects[last.StoragePath])

	require.NoError(t, tr.Discard(context.Background(), first))
	_, err := store.Retrieve(context.Background(), first.StoragePath)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Len(t, store.objects, 1)
}

func TestStatusUpdates(t *testing.T) {
	now := time.Now()
	updates := statusUpdates(now, StatusFailed, "", strings.Repeat("x", 1500))
	require.Len(t, updates, 3)
	assert.Equal(t, firestore.Update{Path: "veo_status", Value: StatusFailed}, updates[0])
	assert.Equal(t, "error", updates[2].Path)
	assert.Len(t, updates[2].Value, 1000)

	updates = statusUpdates(now, StatusCompleted, "https://video", "")
	require.Len(t, updates, 3)
	assert.Equal(t, firestore.Update{Path: "generated_video_uri", Value: "https://video"}, updates[2])
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "视频", truncate("视频生成", 2))
	assert.Equal(t, "abc", truncate("abc", 5))
}

func TestNopTracker(t *testing.T) {
	var tr Tracker = NopTracker{}
	assert.False(t, tr.Available())
	_, err := tr.Archive(context.Background(), []byte("x"), "image/png", "p")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, tr.UpdateStatus(context.Background(), nil, StatusCompleted, "", ""))
	assert.NoError(t, tr.Discard(context.Background(), &Reference{StoragePath: "veo_references/1.png"}))
}

func TestFirestoreTrackerUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tr := NewFirestoreTracker(nil, local, logger)
	assert.False(t, tr.Available())
	_, err = tr.Archive(context.Background(), []byte("x"), "image/png", "p")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NoError(t, tr.UpdateStatus(context.Background(), &Reference{DocID: "abc"}, StatusCompleted, "", ""))
}
