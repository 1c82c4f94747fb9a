// Package videoassets archives Veo reference frames to Firebase Storage and
// tracks the generation status of each frame in Firestore.
package videoassets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gemini-studio/internal/storage"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

const (
	collection = "veo_assets"

	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrUnavailable is returned by trackers that cannot archive frames.
var ErrUnavailable = errors.New("video asset tracking is unavailable")

// Reference is an archived keyframe.
type Reference struct {
	DocID       string
	StoragePath string
	PublicURL   string
	GCSURI      string
}

// Tracker archives keyframes and records their status.
type Tracker interface {
	Available() bool
	Archive(ctx context.Context, data []byte, mimeType, prompt string) (*Reference, error)
	UpdateStatus(ctx context.Context, ref *Reference, status, videoURI, errMsg string) error
	Discard(ctx context.Context, ref *Reference) error
}

// NopTracker is used when Firebase is not configured.
type NopTracker struct{}

func (NopTracker) Available() bool { return false }

func (NopTracker) Archive(ctx context.Context, data []byte, mimeType, prompt string) (*Reference, error) {
	return nil, ErrUnavailable
}

func (NopTracker) UpdateStatus(ctx context.Context, ref *Reference, status, videoURI, errMsg string) error {
	return nil
}

func (NopTracker) Discard(ctx context.Context, ref *Reference) error { return nil }

// FirestoreTracker writes frames through a Cloud Storage backed Storage and
// records them in the veo_assets collection.
type FirestoreTracker struct {
	fs     *firestore.Client
	store  storage.Storage
	logger *slog.Logger
	now    func() time.Time
}

func NewFirestoreTracker(fs *firestore.Client, store storage.Storage, logger *slog.Logger) *FirestoreTracker {
	return &FirestoreTracker{fs: fs, store: store, logger: logger, now: time.Now}
}

func (t *FirestoreTracker) Available() bool {
	return t.fs != nil && t.store != nil
}

// Archive uploads the frame and creates its tracking record. A failure to
// write the record is logged and does not fail the archive.
func (t *FirestoreTracker) Archive(ctx context.Context, data []byte, mimeType, prompt string) (*Reference, error) {
	if !t.Available() {
		return nil, ErrUnavailable
	}

	now := t.now()
	path := ReferencePath(now, uuid.NewString(), mimeType)
	result, err := t.store.StoreAt(ctx, path, data, mimeType)
	if err != nil {
		return nil, fmt.Errorf("archive reference frame: %w", err)
	}
	if result.URI == "" {
		return nil, fmt.Errorf("archive reference frame: storage backend returned no gs:// URI")
	}

	ref := &Reference{
		StoragePath: path,
		PublicURL:   result.Location,
		GCSURI:      result.URI,
	}

	doc := t.fs.Collection(collection).NewDoc()
	_, err = doc.Set(ctx, map[string]any{
		"type":            "reference_image",
		"storage_path":    path,
		"public_url":      result.Location,
		"gcs_uri":         result.URI,
		"prompt":          truncate(prompt, 500),
		"uploaded_at":     now,
		"veo_status":      StatusProcessing,
		"gemini_file_uri": nil,
	})
	if err != nil {
		t.logger.Warn("failed to create veo asset record", "path", path, "error", err)
	} else {
		ref.DocID = doc.ID
	}

	t.logger.Info("archived reference frame", "gcs_uri", result.URI, "doc", ref.DocID)
	return ref, nil
}

// UpdateStatus records the outcome of a generation. References without a
// tracking record are ignored.
func (t *FirestoreTracker) UpdateStatus(ctx context.Context, ref *Reference, status, videoURI, errMsg string) error {
	if ref == nil || ref.DocID == "" || t.fs == nil {
		return nil
	}
	_, err := t.fs.Collection(collection).Doc(ref.DocID).Update(ctx, statusUpdates(t.now(), status, videoURI, errMsg))
	if err != nil {
		return fmt.Errorf("update veo asset %s: %w", ref.DocID, err)
	}
	return nil
}

// Discard deletes the archived object of a frame whose generation failed. The
// tracking record stays so the failure remains visible.
func (t *FirestoreTracker) Discard(ctx context.Context, ref *Reference) error {
	if ref == nil || ref.StoragePath == "" || t.store == nil {
		return nil
	}
	if err := t.store.Delete(ctx, ref.StoragePath); err != nil {
		return fmt.Errorf("delete reference frame %s: %w", ref.StoragePath, err)
	}
	if ref.DocID != "" && t.fs != nil {
		_, err := t.fs.Collection(collection).Doc(ref.DocID).Update(ctx, []firestore.Update{{Path: "reference_deleted", Value: true}})
		if err != nil {
			t.logger.Warn("failed to mark veo asset discarded", "doc", ref.DocID, "error", err)
		}
	}
	return nil
}

func statusUpdates(now time.Time, status, videoURI, errMsg string) []firestore.Update {
	updates := []firestore.Update{
		{Path: "veo_status", Value: status},
		{Path: "updated_at", Value: now},
	}
	if videoURI != "" {
		updates = append(updates, firestore.Update{Path: "generated_video_uri", Value: videoURI})
	}
	if errMsg != "" {
		updates = append(updates, firestore.Update{Path: "error", Value: truncate(errMsg, 1000)})
	}
	return updates
}

// ReferencePath names a frame by its millisecond timestamp plus a unique id, so
// frames archived in the same millisecond do not overwrite each other.
func ReferencePath(now time.Time, id, mimeType string) string {
	ext := ".jpg"
	switch m := strings.ToLower(mimeType); {
	case strings.Contains(m, "png"):
		ext = ".png"
	case strings.Contains(m, "webp"):
		ext = ".webp"
	}
	return fmt.Sprintf("veo_references/%d_%s%s", now.UnixMilli(), id, ext)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
