package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gemini-studio/internal/branddna"
	"gemini-studio/internal/common"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/gemini/geminitest"
	"gemini-studio/internal/middleware"
	"gemini-studio/internal/reel"
	"gemini-studio/internal/seo"
	"gemini-studio/internal/siteprofile"
	"gemini-studio/internal/storage"

	"firebase.google.com/go/v4/auth"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeVerifier map[string]string

func (f fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if uid, ok := f[idToken]; ok {
		return &auth.Token{UID: uid}, nil
	}
	return nil, errors.New("ID token has expired")
}

type staticReader string

func (r staticReader) Read(ctx context.Context, pageURL string) (string, error) {
	if r == "" {
		return "", siteprofile.ErrEmptyContent
	}
	return string(r), nil
}

type testEnv struct {
	srv   *Server
	fake  *geminitest.Fake
	store *storage.LocalStorage
}

func newTestEnv(t *testing.T, fake *geminitest.Fake, opts ...func(*Options)) *testEnv {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	models := common.DefaultModels()
	profiles := branddna.NewMemoryStore()
	o := Options{
		Reel:      reel.NewService(fake, models, profiles, nil, testLogger),
		SEO:       seo.NewService(fake, models, testLogger),
		Extractor: branddna.NewExtractor(fake, models.Text, testLogger),
		Profiles:  profiles,
		Analyzer:  siteprofile.NewAnalyzer(fake, models, staticReader("Lumen makes tripods."), nil, nil, testLogger),
		Storage:   store,
		Auth:      middleware.FirebaseAuth(fakeVerifier{"alice-token": "alice", "bob-token": "bob"}, testLogger),
		Logger:    testLogger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &testEnv{srv: New(o), fake: fake, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func imageFake() *geminitest.Fake {
	return &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return &gemini.Media{Data: []byte("img"), MIMEType: "image/png"}, nil
	}}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})
	rec := e.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{}, func(o *Options) {
		o.Checks = []Check{
			{Name: "storage", Fn: func(ctx context.Context) error { return nil }},
			{Name: "firebase", Fn: func(ctx context.Context) error { return errors.New("not configured") }},
		}
	})
	rec := e.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","checks":{"storage":"ok","firebase":"not configured"}}`, rec.Body.String())
}

func TestAPIRequiresBearerToken(t *testing.T) {
	e := newTestEnv(t, imageFake())

	tests := []struct {
		name  string
		path  string
		token string
		want  string
	}{
		{"no header on generate", "/api/reel/generate", "", "Missing or invalid Authorization header"},
		{"no header on diagnosis", "/api/seo/diagnosis", "", "Missing or invalid Authorization header"},
		{"bad token", "/api/reel/generate", "expired", "Invalid token: ID token has expired"},
		{"no header on unknown route", "/api/nope", "", "Missing or invalid Authorization header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, tt.path, tt.token, `{"prompt":"x"}`)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.want, decodeMap(t, rec)["error"])
		})
	}
	assert.Empty(t, e.fake.ImageCalls)
}

func TestUnknownAPIRoute(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})
	rec := e.do(t, http.MethodGet, "/api/does-not-exist", "alice-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())
}

func TestFrontend(t *testing.T) {
	t.Run("not built", func(t *testing.T) {
		e := newTestEnv(t, &geminitest.Fake{}, func(o *Options) { o.FrontendDist = filepath.Join(t.TempDir(), "dist") })
		rec := e.do(t, http.MethodGet, "/", "", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Frontend not built", decodeMap(t, rec)["error"])
	})

	t.Run("spa fallback", func(t *testing.T) {
		dist := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>app</html>"), 0644))
		require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0644))
		e := newTestEnv(t, &geminitest.Fake{}, func(o *Options) { o.FrontendDist = dist })

		rec := e.do(t, http.MethodGet, "/assets/app.js", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "console.log(1)", rec.Body.String())

		rec = e.do(t, http.MethodGet, "/studio/reel", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<html>app</html>", rec.Body.String())
	})
}

func TestRequestValidation(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"empty body", "/api/reel/generate", "", http.StatusBadRequest, "Missing request body"},
		{"missing prompt", "/api/reel/generate", `{"model":"banana"}`, http.StatusBadRequest, "Missing 'prompt' in request body"},
		{"missing user prompt", "/api/reel/creative-director", `{"selectedModel":"veo"}`, http.StatusBadRequest, "Missing 'userPrompt' in request body"},
		{"missing topic", "/api/reel/design-plan", `{"model":"banana"}`, http.StatusBadRequest, "Missing 'topic' in request body"},
		{"upscale without image", "/api/reel/upscale", `{"prompt":"x"}`, http.StatusBadRequest, "Missing required fields"},
		{"remove background", "/api/reel/remove-background", `{"mimeType":"image/png"}`, http.StatusBadRequest, "Missing 'base64Data' in request body"},
		{"diagnosis url", "/api/seo/diagnosis", `{}`, http.StatusBadRequest, "Missing 'url' in request body"},
		{"solution board profile", "/api/seo/solution-board", `{"url":"https://lumen.com"}`, http.StatusBadRequest, "Missing required fields"},
		{"web research brief", "/api/seo/web-research", `{"topic":"x"}`, http.StatusBadRequest, "Missing 'brief' in request body"},
		{"metadata brief", "/api/seo/generate-metadata", `{"article":"text"}`, http.StatusBadRequest, "Missing required fields"},
		{"analyze url", "/api/analyze", `{}`, http.StatusBadRequest, "Missing 'url' in request body"},
		{"bad image data", "/api/reel/remove-background", `{"base64Data":"%%%"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, tt.path, "alice-token", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeMap(t, rec)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}

	rec := e.do(t, http.MethodPost, "/api/reel/generate", "alice-token", `{"prompt":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], "Invalid JSON body")
}

func TestGenerateImage(t *testing.T) {
	e := newTestEnv(t, imageFake())

	rec := e.do(t, http.MethodPost, "/api/reel/generate", "alice-token", `{"prompt":"a red cup","model":"banana"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeMap(t, rec)
	assert.Equal(t, "image", body["type"])
	assert.Equal(t, "done", body["status"])
	assert.Equal(t, "a red cup", body["prompt"])
	assert.Equal(t, "data:image/png;base64,aW1n", body["src"])
	assert.True(t, strings.HasPrefix(body["assetId"].(string), "reel-img-"))
	assert.Equal(t, "banana", body["generationModel"])
}

func TestGenerateLocationRestriction(t *testing.T) {
	fake := &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return nil, errors.New("Error 400, Message: User location is not supported for the API use., Status: FAILED_PRECONDITION")
	}}
	e := newTestEnv(t, fake)

	rec := e.do(t, http.MethodPost, "/api/reel/generate", "alice-token", `{"prompt":"a red cup"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeMap(t, rec)
	assert.Equal(t, "API location restriction", body["error"])
	assert.Equal(t, "ANSWER_QUESTION", body["action"])
	assert.Equal(t, "检测到地理位置限制", body["reasoning"])
}

func TestGenerateModelFailure(t *testing.T) {
	fake := &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return nil, gemini.ErrNoImage
	}}
	e := newTestEnv(t, fake)

	rec := e.do(t, http.MethodPost, "/api/reel/generate", "alice-token", `{"prompt":"a red cup"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], gemini.ErrNoImage.Error())
}

func TestImageEditRoutes(t *testing.T) {
	fake := imageFake()
	fake.ImagenFunc = func(ctx context.Context, prompt, aspectRatio string) (*gemini.Media, error) {
		return &gemini.Media{Data: []byte(aspectRatio), MIMEType: "image/png"}, nil
	}
	e := newTestEnv(t, fake)

	rec := e.do(t, http.MethodPost, "/api/reel/upscale", "alice-token", `{"base64Data":"iVBORw0KGgo=","prompt":"a cup","factor":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"base64Image":"OToxNg=="}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/reel/reference-image", "alice-token", `{"prompt":"a cup"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"base64Image":"MTY6OQ=="}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/reel/remove-background", "alice-token", `{"base64Data":"iVBORw0KGgo=","mimeType":"image/png"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"base64Image":"aW1n"}`, rec.Body.String())
}

func TestSummarizePrompt(t *testing.T) {
	e := newTestEnv(t, geminitest.Texts("  Red Cup On Marble \n"))

	rec := e.do(t, http.MethodPost, "/api/reel/summarize-prompt", "alice-token", `{"prompt":"a red cup on a marble table"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary":"Red Cup On Marble"}`, rec.Body.String())
}

func TestProfileLifecycle(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})

	rec := e.do(t, http.MethodPost, "/api/brand-dna/profiles", "alice-token", `{"description":"no name"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing 'name' in request body", decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/brand-dna/profiles", "alice-token", `{"name":"Lumen","mood":"Calm"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decodeMap(t, rec)
	id := first["id"].(string)
	assert.Equal(t, "alice", first["uid"])

	rec = e.do(t, http.MethodPost, "/api/brand-dna/profiles", "alice-token", `{"name":"Lumen Night"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/brand-dna/profiles", "alice-token", `{"name":"Third"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["error"], "LIMIT_REACHED")

	rec = e.do(t, http.MethodGet, "/api/brand-dna/profiles", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Profiles []branddna.Profile `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Profiles, 2)

	rec = e.do(t, http.MethodGet, "/api/brand-dna/profiles", "bob-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"profiles":[]}`, rec.Body.String())

	rec = e.do(t, http.MethodPatch, "/api/brand-dna/profiles/"+id, "alice-token", `{"mood":"Bold"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bold", decodeMap(t, rec)["mood"])

	rec = e.do(t, http.MethodPost, "/api/brand-dna/profiles/"+id+"/activate", "alice-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeMap(t, rec)["isActive"])

	rec = e.do(t, http.MethodDelete, "/api/brand-dna/profiles/"+id, "bob-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/brand-dna/profiles/"+id, "alice-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPatch, "/api/brand-dna/profiles/"+id, "alice-token", `{"mood":"Bold"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractDNA(t *testing.T) {
	t.Run("requires an image", func(t *testing.T) {
		e := newTestEnv(t, &geminitest.Fake{})
		rec := e.do(t, http.MethodPost, "/api/brand-dna/extract", "alice-token", `{"description":"cozy"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"At least one image (logo or reference) is required"}`, rec.Body.String())
	})

	t.Run("returns extracted fields", func(t *testing.T) {
		e := newTestEnv(t, geminitest.Texts("```json\n{\"visualStyle\":\"Minimal\",\"colorPalette\":\"Black, white\",\"mood\":\"Calm\",\"negativeConstraint\":\"Clutter\",\"motionStyle\":\"Slow\"}\n```"))
		rec := e.do(t, http.MethodPost, "/api/brand-dna/extract", "alice-token", `{"logoImage":{"data":"iVBORw0KGgo=","mimeType":"image/png"}}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"visualStyle":"Minimal","colorPalette":"Black, white","mood":"Calm","negativeConstraint":"Clutter","motionStyle":"Slow"}`, rec.Body.String())
	})
}

func TestSEORoutes(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})

	rec := e.do(t, http.MethodPost, "/api/seo/analyze-intent", "alice-token", `{"prompt":"帮我生成一个产品视频"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, seo.IntentVideoGeneration, decodeMap(t, rec)["intent"])

	rec = e.do(t, http.MethodPost, "/api/seo/solution-board", "alice-token", `{"url":"https://lumen.com","profile":{"projects":[]}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, seo.ErrNoProjects.Error(), decodeMap(t, rec)["error"])

	rec = e.do(t, http.MethodPost, "/api/seo/generate-outline", "alice-token",
		`{"researchSummary":"","brief":{"suggestedOutline":["Intro","Setup"]},"profile":{"projects":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Intro","Setup"]`, rec.Body.String())
}

func TestPolishArticle(t *testing.T) {
	e := newTestEnv(t, geminitest.Texts("# Polished"))
	rec := e.do(t, http.MethodPost, "/api/seo/polish-article", "alice-token", `{"article":"# Draft"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"article":"# Polished"}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	e := newTestEnv(t, geminitest.Texts("# Lumen"))
	rec := e.do(t, http.MethodPost, "/api/analyze", "alice-token", `{"url":"https://lumen.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text_profile":"# Lumen","assets":{"logos":[],"images":[]}}`, rec.Body.String())

	e = newTestEnv(t, &geminitest.Fake{}, func(o *Options) {
		o.Analyzer = siteprofile.NewAnalyzer(&geminitest.Fake{}, common.DefaultModels(), staticReader(""), nil, nil, testLogger)
	})
	rec = e.do(t, http.MethodPost, "/api/analyze", "alice-token", `{"url":"https://lumen.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch content from URL"}`, rec.Body.String())
}

func TestUpload(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "logo.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nlogo"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("prefix", "brand"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/assets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer alice-token")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "image/png", res.MIMEType)
	assert.Equal(t, int64(12), res.Size)
	assert.True(t, strings.HasPrefix(res.ObjectKey, "brand_"), res.ObjectKey)
	assert.Empty(t, res.DownloadURL)
	assert.Equal(t, "Media uploaded successfully", res.Message)

	data, err := e.store.Retrieve(context.Background(), res.ObjectKey)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\nlogo", string(data))

	rec = e.do(t, http.MethodPost, "/api/assets/upload", "alice-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing 'file' in request body", decodeMap(t, rec)["error"])
}

func TestCORSPreflight(t *testing.T) {
	e := newTestEnv(t, &geminitest.Fake{})
	req := httptest.NewRequest(http.MethodOptions, "/api/reel/generate", nil)
	req.Header.Set("Origin", "https://studio.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	// Browsers send the requested headers lowercased and comma separated.
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "authorization")
}

func TestRoutingWithMCP(t *testing.T) {
	dist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>app</html>"), 0644))
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mcp " + r.Method))
	})
	// New registers every pattern up front; a conflicting pair would panic here.
	e := newTestEnv(t, &geminitest.Fake{}, func(o *Options) {
		o.MCP = mcpHandler
		o.FrontendDist = dist
	})

	rec := e.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>app</html>", rec.Body.String())

	rec = e.do(t, http.MethodPost, "/mcp", "", "{}")
	assert.Equal(t, "mcp POST", rec.Body.String())
	rec = e.do(t, http.MethodGet, "/mcp", "", "")
	assert.Equal(t, "mcp GET", rec.Body.String())

	rec = e.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/unknown", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = e.do(t, http.MethodGet, "/api/unknown", "alice-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/", "", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestImageStudioRoutes(t *testing.T) {
	fake := imageFake()
	fake.ImagenFunc = func(ctx context.Context, prompt, aspectRatio string) (*gemini.Media, error) {
		return &gemini.Media{Data: []byte(aspectRatio), MIMEType: "image/png"}, nil
	}
	e := newTestEnv(t, fake)

	rec := e.do(t, http.MethodPost, "/api/image/generate", "alice-token", `{"prompt":"a lamp","modelLevel":"banana_pro"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"base64Image":"aW1n"}`, rec.Body.String())
	assert.Equal(t, "gemini-3-pro-image-preview", fake.ImageCalls[0].Model)
	assert.Equal(t, "1:1", fake.ImageCalls[0].AspectRatio)

	rec = e.do(t, http.MethodPost, "/api/image/inspiration", "alice-token", `{"prompt":"创建AI图片 misty forest"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"base64Image":"aW1n"}`, rec.Body.String())
	assert.Equal(t, "misty forest", fake.ImageCalls[1].Prompt)
	assert.Equal(t, "gemini-2.5-flash-image", fake.ImageCalls[1].Model)

	rec = e.do(t, http.MethodPost, "/api/image/reference-image", "alice-token", `{"prompt":"a cup"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"base64Image":"MTY6OQ=="}`, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/api/image/inspiration", "alice-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = e.do(t, http.MethodPost, "/api/image/inspiration", "", `{"prompt":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVideoStudioRoutes(t *testing.T) {
	fake := geminitest.Texts(`[{"title":"Neon","description":"d","tags":["a"],"fullPrompt":"neon city"}]`)
	fake.VideoFunc = func(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoResult, error) {
		return &gemini.VideoResult{URI: "https://v/1", SignedURI: "https://v/1?key=k"}, nil
	}
	e := newTestEnv(t, fake)

	rec := e.do(t, http.MethodPost, "/api/video/generate", "alice-token", `{"prompt":"waves"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"videoUri":"https://v/1?key=k"}`, rec.Body.String())
	require.Len(t, fake.VideoCalls, 1)
	assert.Equal(t, "16:9", fake.VideoCalls[0].AspectRatio)

	rec = e.do(t, http.MethodPost, "/api/video/enhance-prompt", "alice-token", `{"prompt":"city"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[{"title":"Neon","description":"d","tags":["a"],"fullPrompt":"neon city"}]`, rec.Body.String())
	require.Len(t, fake.TextCalls, 1)
	assert.True(t, strings.HasPrefix(fake.TextCalls[0].SystemInstruction, "You are a Senior VEO 3.1 Prompt Specialist"))

	rec = e.do(t, http.MethodPost, "/api/image/enhance-prompt", "alice-token", `{"prompt":"city"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, fake.TextCalls, 2)
	assert.False(t, strings.HasPrefix(fake.TextCalls[1].SystemInstruction, "You are a Senior VEO 3.1 Prompt Specialist"))

	rec = e.do(t, http.MethodPost, "/api/video/generate", "alice-token", `{"aspectRatio":"9:16"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
