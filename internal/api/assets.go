package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"gemini-studio/internal/siteprofile"
	"gemini-studio/internal/storage"
)

// maxUploadBytes bounds multipart uploads, videos included.
const maxUploadBytes = 256 << 20

// UploadResult describes a stored upload. It is shared by the HTTP upload
// route and the upload_media tool.
type UploadResult struct {
	ObjectKey   string `json:"object_key"`
	DownloadURL string `json:"download_url,omitempty"`
	URI         string `json:"uri,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
	MIMEType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	Message     string `json:"message"`
	UploadedAt  string `json:"uploaded_at"`
}

// NewUploadResult builds the response for res. Local backends expose no
// download URL.
func NewUploadResult(res *storage.StorageResult, remote bool, now time.Time) UploadResult {
	out := UploadResult{
		ObjectKey:  res.ObjectKey,
		URI:        res.URI,
		MIMEType:   res.MIMEType,
		Size:       res.Size,
		Message:    "Media uploaded successfully",
		UploadedAt: now.Format("20060102_150405"),
	}
	if remote {
		out.DownloadURL = res.Location
		if res.ExpiresAt != nil {
			out.ExpiresAt = res.ExpiresAt.Format(time.RFC3339)
		}
	}
	return out
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.storage == nil {
		jsonError(w, "Storage not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		missingField(w, "file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		jsonError(w, "Uploaded file is empty", http.StatusBadRequest)
		return
	}

	mimeType := uploadMIME(header.Header.Get("Content-Type"), header.Filename, data)
	prefix := r.FormValue("prefix")
	if prefix == "" {
		prefix = "upload"
	}

	res, err := s.storage.Store(r.Context(), data, mimeType, prefix)
	if err != nil {
		s.fail(w, r, fmt.Errorf("store upload: %w", err))
		return
	}
	s.logger.Info("stored upload", "object_key", res.ObjectKey, "size", res.Size, "mime_type", mimeType)

	writeJSON(w, http.StatusOK, NewUploadResult(res, s.storage.IsRemote(), time.Now()))
}

// uploadMIME prefers the part's declared type, then the file extension, then
// content sniffing.
func uploadMIME(declared, filename string, data []byte) string {
	if ct, _, err := mime.ParseMediaType(declared); err == nil && ct != "application/octet-stream" {
		return ct
	}
	if m := storage.MIMEFromExtension(filename); m != "application/octet-stream" {
		return m
	}
	return http.DetectContentType(data)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		missingField(w, "url")
		return
	}

	res, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("site analysis failed", "url", req.URL, "error", err)
		if errors.Is(err, siteprofile.ErrEmptyContent) {
			jsonError(w, "Failed to fetch content from URL", http.StatusInternalServerError)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
