// Package fbadmin initializes the Firebase Admin SDK services used by the studio.
package fbadmin

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gemini-studio/internal/common"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Services bundles the initialized Firebase clients. Bucket is nil when no
// storage bucket is configured.
type Services struct {
	Auth       *auth.Client
	Firestore  *firestore.Client
	Bucket     *gcs.BucketHandle
	BucketName string
}

// Close releases the Firestore connection.
func (s *Services) Close() error {
	if s == nil || s.Firestore == nil {
		return nil
	}
	return s.Firestore.Close()
}

// candidateKeyFiles are checked when no explicit credentials are configured.
var candidateKeyFiles = []string{"serviceAccountKey.json", "backend/serviceAccountKey.json"}

// credentials describes where the service account came from.
type credentials struct {
	source string
	option option.ClientOption
}

// resolveCredentials picks credentials in order: explicit path, inline JSON,
// a key file next to the process, then application default credentials when a
// project id is known. A nil result means Firebase is not configured.
func resolveCredentials(config *common.Config, exeDir string) (*credentials, error) {
	if path := config.FirebaseCredentialsPath; path != "" {
		resolved, ok := findFile(path, exeDir)
		if !ok {
			return nil, fmt.Errorf("firebase credentials file not found: %s", path)
		}
		return &credentials{source: resolved, option: option.WithCredentialsFile(resolved)}, nil
	}
	if config.FirebaseCredentialsJSON != "" {
		return &credentials{source: "FIREBASE_CREDENTIALS_JSON", option: option.WithCredentialsJSON([]byte(config.FirebaseCredentialsJSON))}, nil
	}
	for _, name := range candidateKeyFiles {
		if resolved, ok := findFile(name, exeDir); ok {
			return &credentials{source: resolved, option: option.WithCredentialsFile(resolved)}, nil
		}
	}
	if config.FirebaseProjectID != "" {
		return &credentials{source: "application default credentials"}, nil
	}
	return nil, nil
}

// findFile resolves a relative path against the working directory first and
// the executable directory second.
func findFile(path, exeDir string) (string, bool) {
	if filepath.IsAbs(path) {
		_, err := os.Stat(path)
		return path, err == nil
	}
	if _, err := os.Stat(path); err == nil {
		abs, _ := filepath.Abs(path)
		return abs, true
	}
	if exeDir != "" {
		candidate := filepath.Join(exeDir, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}

// New initializes Firebase. It returns nil, nil when no credentials are
// available so the server can run with Firebase features disabled.
func New(ctx context.Context, config *common.Config, logger *slog.Logger) (*Services, error) {
	creds, err := resolveCredentials(config, executableDir())
	if err != nil {
		return nil, err
	}
	if creds == nil {
		logger.Warn("firebase credentials not found, auth and firestore features are disabled")
		return nil, nil
	}

	var opts []option.ClientOption
	if creds.option != nil {
		opts = append(opts, creds.option)
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     config.FirebaseProjectID,
		StorageBucket: config.FirebaseStorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore: %w", err)
	}

	services := &Services{Auth: authClient, Firestore: fs}

	if config.FirebaseStorageBucket != "" {
		storageClient, err := app.Storage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firebase storage: %w", err)
		}
		bucket, err := storageClient.DefaultBucket()
		if err != nil {
			return nil, fmt.Errorf("failed to open storage bucket: %w", err)
		}
		services.Bucket = bucket
		services.BucketName = config.FirebaseStorageBucket
	}

	logger.Info("firebase initialized",
		"credentials", creds.source,
		"project", config.FirebaseProjectID,
		"bucket", services.BucketName)
	return services, nil
}
