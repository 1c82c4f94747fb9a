// Package api exposes the studio over HTTP: the reel, Brand DNA, SEO, site
// analysis and upload endpoints, health checks and the SPA.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gemini-studio/internal/branddna"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/reel"
	"gemini-studio/internal/seo"
	"gemini-studio/internal/siteprofile"
	"gemini-studio/internal/storage"

	json "github.com/goccy/go-json"
	"github.com/rs/cors"
)

// maxBodyBytes bounds JSON request bodies; they carry base64 images.
const maxBodyBytes = 64 << 20

var errEmptyBody = errors.New("empty request body")

// Check is a named readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Options wires the services behind the HTTP surface. Auth wraps every /api
// route; MCP, when set, is mounted at /mcp as is.
type Options struct {
	Reel      *reel.Service
	SEO       *seo.Service
	Extractor *branddna.Extractor
	Profiles  branddna.Store
	Analyzer  *siteprofile.Analyzer
	Storage   storage.Storage

	Auth   func(http.Handler) http.Handler
	MCP    http.Handler
	Checks []Check

	FrontendDist string
	CORSOrigins  []string
	Logger       *slog.Logger
}

type Server struct {
	reel      *reel.Service
	seo       *seo.Service
	extractor *branddna.Extractor
	profiles  branddna.Store
	analyzer  *siteprofile.Analyzer
	storage   storage.Storage
	checks    []Check
	frontend  string
	logger    *slog.Logger

	handler http.Handler
}

func New(opts Options) *Server {
	s := &Server{
		reel:      opts.Reel,
		seo:       opts.SEO,
		extractor: opts.Extractor,
		profiles:  opts.Profiles,
		analyzer:  opts.Analyzer,
		storage:   opts.Storage,
		checks:    opts.Checks,
		frontend:  opts.FrontendDist,
		logger:    opts.Logger,
	}

	auth := opts.Auth
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", auth(s.apiRoutes()))
	if opts.MCP != nil {
		mux.Handle("/mcp", opts.MCP)
	}
	mux.HandleFunc("/", s.handleFrontend)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id", "Mcp-Session-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Mcp-Session-Id"},
	})
	s.handler = c.Handler(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) apiRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/reel/creative-director", s.handleCreativeDirector)
	mux.HandleFunc("POST /api/reel/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/reel/enhance-prompt", s.handleEnhancePrompt(""))
	mux.HandleFunc("POST /api/reel/design-plan", s.handleDesignPlan(""))
	mux.HandleFunc("POST /api/reel/upscale", s.handleUpscale)
	mux.HandleFunc("POST /api/reel/remove-background", s.handleRemoveBackground)
	mux.HandleFunc("POST /api/reel/reference-image", s.handleReferenceImage)
	mux.HandleFunc("POST /api/reel/summarize-prompt", s.handleSummarizePrompt)

	// Standalone image and video studios share the reel flows.
	mux.HandleFunc("POST /api/image/creative-director", s.handleCreativeDirector)
	mux.HandleFunc("POST /api/image/generate", s.handleImageGenerate)
	mux.HandleFunc("POST /api/image/enhance-prompt", s.handleEnhancePrompt(""))
	mux.HandleFunc("POST /api/image/design-plan", s.handleDesignPlan(""))
	mux.HandleFunc("POST /api/image/reference-image", s.handleReferenceImage)
	mux.HandleFunc("POST /api/image/upscale", s.handleUpscale)
	mux.HandleFunc("POST /api/image/summarize-prompt", s.handleSummarizePrompt)
	mux.HandleFunc("POST /api/image/remove-background", s.handleRemoveBackground)
	mux.HandleFunc("POST /api/image/inspiration", s.handleInspiration)

	mux.HandleFunc("POST /api/video/creative-director", s.handleCreativeDirector)
	mux.HandleFunc("POST /api/video/generate", s.handleVideoGenerate)
	mux.HandleFunc("POST /api/video/enhance-prompt", s.handleEnhancePrompt("veo"))
	mux.HandleFunc("POST /api/video/design-plan", s.handleDesignPlan("veo"))
	mux.HandleFunc("POST /api/video/summarize-prompt", s.handleSummarizePrompt)
	mux.HandleFunc("POST /api/video/reference-image", s.handleReferenceImage)

	mux.HandleFunc("POST /api/brand-dna/extract", s.handleExtractDNA)
	mux.HandleFunc("GET /api/brand-dna/profiles", s.handleListProfiles)
	mux.HandleFunc("POST /api/brand-dna/profiles", s.handleCreateProfile)
	mux.HandleFunc("PATCH /api/brand-dna/profiles/{id}", s.handleUpdateProfile)
	mux.HandleFunc("DELETE /api/brand-dna/profiles/{id}", s.handleDeleteProfile)
	mux.HandleFunc("POST /api/brand-dna/profiles/{id}/activate", s.handleActivateProfile)

	mux.HandleFunc("POST /api/seo/analyze-intent", s.handleAnalyzeIntent)
	mux.HandleFunc("POST /api/seo/diagnosis", s.handleDiagnosis)
	mux.HandleFunc("POST /api/seo/competitors", s.handleCompetitors)
	mux.HandleFunc("POST /api/seo/competitor-analysis", s.handleCompetitorAnalysis)
	mux.HandleFunc("POST /api/seo/solution-board", s.handleSolutionBoard)
	mux.HandleFunc("POST /api/seo/content-brief", s.handleContentBrief)
	mux.HandleFunc("POST /api/seo/web-research", s.handleWebResearch)
	mux.HandleFunc("POST /api/seo/generate-outline", s.handleGenerateOutline)
	mux.HandleFunc("POST /api/seo/write-article", s.handleWriteArticle)
	mux.HandleFunc("POST /api/seo/polish-article", s.handlePolishArticle)
	mux.HandleFunc("POST /api/seo/generate-metadata", s.handleGenerateMetadata)

	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/assets/upload", s.handleUpload)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, "Not found", http.StatusNotFound)
	})
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.Fn(ctx); err != nil {
			s.logger.Warn("readiness check failed", "check", c.Name, "error", err)
			results[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}

	body := map[string]any{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "unavailable"
	}
	writeJSON(w, status, body)
}

// handleFrontend serves the built SPA, answering unknown paths with index.html
// so client-side routes work on reload.
// handleFrontend is registered without a method so it does not conflict with
// the method-less /api/ and /mcp patterns.
func (s *Server) handleFrontend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.frontend == "" {
		frontendMissing(w, s.frontend)
		return
	}
	index := filepath.Join(s.frontend, "index.html")
	if _, err := os.Stat(index); err != nil {
		frontendMissing(w, s.frontend)
		return
	}

	rel := filepath.FromSlash(strings.TrimPrefix(filepath.ToSlash(filepath.Clean("/"+r.URL.Path)), "/"))
	if rel != "" && rel != "." {
		p := filepath.Join(s.frontend, rel)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			http.ServeFile(w, r, p)
			return
		}
	}
	http.ServeFile(w, r, index)
}

func frontendMissing(w http.ResponseWriter, dir string) {
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error":   "Frontend not built",
		"message": "Please run 'npm run build' in the frontend directory or start the frontend dev server separately.",
		"debug_info": map[string]string{
			"frontend_dist": dir,
		},
	})
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(body, v)
}

// readBody decodes the body and answers 400 itself when that fails.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeBody(w, r, v); err != nil {
		if errors.Is(err, errEmptyBody) {
			jsonError(w, "Missing request body", http.StatusBadRequest)
			return false
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			jsonError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func missingField(w http.ResponseWriter, field string) {
	jsonError(w, "Missing '"+field+"' in request body", http.StatusBadRequest)
}

func missingFields(w http.ResponseWriter) {
	jsonError(w, "Missing required fields", http.StatusBadRequest)
}

// fail logs err and answers with the status its kind maps to.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	jsonError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gemini.ErrInvalidImage),
		errors.Is(err, branddna.ErrMissingName),
		errors.Is(err, branddna.ErrNoImages),
		errors.Is(err, seo.ErrNoProjects):
		return http.StatusBadRequest
	case errors.Is(err, branddna.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, branddna.ErrLimitReached):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
