package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gemini-studio/internal/common"

	json "github.com/goccy/go-json"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const uploadPath = "/api/assets/upload"

// ErrorResult is printed on any failure.
type ErrorResult struct {
	Error string `json:"error"`
}

func main() {
	defaults := common.LoadUploadConfig()

	serverURL := flag.String("server", defaults.ServerURL, "Studio base URL (env GEMINI_STUDIO_URL)")
	token := flag.String("token", defaults.Token, "Firebase ID token (env FIREBASE_ID_TOKEN)")
	prefix := flag.String("prefix", "", "Object key prefix (default: upload)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Request timeout")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *showVersion {
		fmt.Printf("upload_media version %s\n", version)
		fmt.Printf("Build time: %s\n", buildTime)
		fmt.Printf("Git commit: %s\n", gitCommit)
		return
	}
	if *showHelp {
		printUsage()
		return
	}

	args := flag.Args()
	if len(args) != 1 {
		printUsage()
		os.Exit(1)
	}

	cfg := &common.UploadConfig{ServerURL: *serverURL, Token: *token}
	if err := cfg.Validate(); err != nil {
		outputError(err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out, err := upload(ctx, http.DefaultClient, cfg, args[0], *prefix)
	if err != nil {
		outputError(err.Error())
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// upload posts filePath as the multipart "file" field and returns the server's
// JSON response.
func upload(ctx context.Context, client *http.Client, cfg *common.UploadConfig, filePath, prefix string) ([]byte, error) {
	if !filepath.IsAbs(filePath) {
		return nil, fmt.Errorf("file path must be absolute: %s", filePath)
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file data: %w", err)
	}
	if prefix != "" {
		if err := writer.WriteField("prefix", prefix); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(cfg.ServerURL, "/") + uploadPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+cfg.Token)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errResult ErrorResult
		if json.Unmarshal(respBody, &errResult) == nil && errResult.Error != "" {
			return nil, errors.New(errResult.Error)
		}
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `upload_media - Upload a file to gemini-studio storage

Usage:
  upload_media [--server <url>] [--token <id token>] [--prefix <prefix>] <file_path>
  upload_media -version
  upload_media -help

Flags:
  --server    Studio base URL, default $GEMINI_STUDIO_URL or http://localhost:8080
  --token     Firebase ID token, default $FIREBASE_ID_TOKEN
  --prefix    Object key prefix, default "upload"

Arguments:
  <file_path>    Absolute path to the file to upload

Output:
  JSON object with object_key, download_url, uri, mime_type, size, etc.
`)
}

func outputError(msg string) {
	jsonBytes, _ := json.MarshalIndent(ErrorResult{Error: msg}, "", "  ")
	fmt.Fprintln(os.Stderr, string(jsonBytes))
}
