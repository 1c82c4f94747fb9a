// Package siteprofile builds a brand profile for a website from its text and
// the images search engines have indexed for its domain.
package siteprofile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gemini-studio/internal/common"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/storage"

	"golang.org/x/sync/errgroup"
)

const (
	maxPageBytes    = 5 << 20
	maxImageBytes   = 10 << 20
	profileChars    = 10000
	maxLogos        = 5
	maxImages       = 10
	copyConcurrency = 4
)

var errorPageMarkers = []string{
	"403",
	"forbidden",
	"access denied",
	"unable to give you access",
	"security issue",
	"warning: target url returned error",
}

// StoredAsset is an image copied into storage, or its original URL when the
// copy failed.
type StoredAsset struct {
	StoredURLPublic string `json:"stored_url_public"`
}

type Assets struct {
	Logos  []StoredAsset `json:"logos"`
	Images []StoredAsset `json:"images"`
}

type Result struct {
	TextProfile string `json:"text_profile"`
	Assets      Assets `json:"assets"`
}

// Analyzer runs the website analysis. images and store may be nil, in which
// case no images are searched or original URLs are returned.
type Analyzer struct {
	gen    gemini.Generator
	models common.Models
	reader Reader
	images ImageSearcher
	store  storage.Storage
	client *http.Client
	logger *slog.Logger
}

func NewAnalyzer(gen gemini.Generator, models common.Models, reader Reader, images ImageSearcher, store storage.Storage, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		gen:    gen,
		models: models,
		reader: reader,
		images: images,
		store:  store,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Analyze fetches the page text, summarizes it into a markdown profile and
// collects the domain's logos and images.
func (a *Analyzer) Analyze(ctx context.Context, siteURL string) (*Result, error) {
	domain := Domain(siteURL)

	text, err := a.reader.Read(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", siteURL, err)
	}
	blocked := IsErrorPage(text)
	if blocked {
		a.logger.Warn("reader returned what looks like an error page", "url", siteURL)
	}

	profile := a.profile(ctx, siteURL, text, blocked)

	var found []string
	if a.images != nil {
		found, err = a.images.SearchImages(ctx, domain)
		if err != nil {
			a.logger.Error("image search failed", "domain", domain, "error", err)
			found = nil
		}
	}
	logos, images := Categorize(found)

	result := &Result{TextProfile: profile}
	result.Assets.Logos = a.copyAll(ctx, domain, "logos/logo", logos)
	result.Assets.Images = a.copyAll(ctx, domain, "images/img", images)
	return result, nil
}

func (a *Analyzer) profile(ctx context.Context, siteURL, text string, blocked bool) string {
	out, err := a.gen.Text(ctx, gemini.TextRequest{
		Model:  a.models.Text,
		Prompt: profilePrompt(siteURL, text, blocked),
	})
	if err != nil {
		a.logger.Error("brand profile generation failed", "url", siteURL, "error", err)
		return "# Brand Profile\n\nError: " + err.Error()
	}
	if strings.TrimSpace(out) == "" {
		return "# Brand Profile\n\nError: model returned empty text"
	}
	return out
}

// copyAll stores each URL under brand-assets/<domain>/<stem>_<i>. Entries keep
// their input order. The public URL is the stored copy only when the backend
// hands out a browser reachable http(s) URL; otherwise the source URL is kept.
func (a *Analyzer) copyAll(ctx context.Context, domain, stem string, urls []string) []StoredAsset {
	out := make([]StoredAsset, len(urls))
	for i, u := range urls {
		out[i] = StoredAsset{StoredURLPublic: u}
	}
	if a.store == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(copyConcurrency)
	for i, u := range urls {
		g.Go(func() error {
			stored, err := a.copy(gctx, fmt.Sprintf("brand-assets/%s/%s_%d", domain, stem, i), u)
			if err != nil {
				a.logger.Warn("asset copy failed, keeping original url", "url", u, "error", err)
				return nil
			}
			out[i] = StoredAsset{StoredURLPublic: stored}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Analyzer) copy(ctx context.Context, key, src string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("download returned %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return "", err
	}

	mimeType := "image/jpeg"
	if ct, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && strings.HasPrefix(ct, "image/") {
		mimeType = ct
	}
	ext := storage.ExtensionFromMIME(mimeType)
	if ext == "" {
		ext = ".jpg"
	}

	res, err := a.store.StoreAt(ctx, key+ext, data, mimeType)
	if err != nil {
		return "", err
	}
	if !a.store.IsRemote() || !isHTTPURL(res.Location) {
		return src, nil
	}
	return res.Location, nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

// Domain returns the host of siteURL, or its first path segment when the URL
// has no scheme.
func Domain(siteURL string) string {
	u, err := url.Parse(siteURL)
	if err != nil {
		return siteURL
	}
	if u.Host != "" {
		return u.Host
	}
	return strings.SplitN(u.Path, "/", 2)[0]
}

// IsErrorPage reports whether reader output looks like a 403 or bot-block page.
func IsErrorPage(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range errorPageMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Categorize splits image URLs into logos and other images, capped at 5 and
// 10 respectively.
func Categorize(urls []string) (logos, images []string) {
	logos, images = []string{}, []string{}
	for _, u := range urls {
		if strings.Contains(strings.ToLower(u), "logo") {
			if len(logos) < maxLogos {
				logos = append(logos, u)
			}
			continue
		}
		if len(images) < maxImages {
			images = append(images, u)
		}
	}
	return logos, images
}

func profilePrompt(siteURL, text string, blocked bool) string {
	if r := []rune(text); len(r) > profileChars {
		text = string(r[:profileChars])
	}

	var note string
	if blocked {
		note = `⚠️ IMPORTANT NOTE: The content above appears to be an error page (403 Forbidden) from the target website. The website may be blocking automated access. Please:
1. Extract any brand information available from the error page (brand name, security policies, product mentions)
2. Use the URL and domain name to infer brand information
3. If the error page mentions products (like 'sneakers'), security measures, or brand values, include those in the profile
4. Clearly indicate in the profile that this analysis is based on limited information from an error page
`
	}

	return fmt.Sprintf(`
Analyze the following website content and create a comprehensive Brand Profile in Markdown format.

Website URL: %s
Content:
---
%s
---

%s
Generate a Brand Profile that includes:
1. **Brand Overview**: Company name, industry, and core business description
2. **Brand Values**: Key values and principles
3. **Target Audience**: Primary customer segments
4. **Brand Voice**: Tone and style characteristics
5. **Key Products/Services**: Main offerings
6. **Market Position**: Competitive positioning

Format the output as clean Markdown with proper headings and structure.
`, siteURL, text, note)
}
