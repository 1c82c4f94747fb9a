// Package seo implements the content SEO workflow: intent routing, site
// diagnosis, competitor research, strategy, and article production.
package seo

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"gemini-studio/internal/common"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/llmjson"

	json "github.com/goccy/go-json"
)

// ErrNoProjects is returned when a brand profile has no projects to target.
var ErrNoProjects = errors.New("BrandProfile contains no projects")

// Service runs the SEO flows against a Generator.
type Service struct {
	gen    gemini.Generator
	models common.Models
	logger *slog.Logger
}

func NewService(gen gemini.Generator, models common.Models, logger *slog.Logger) *Service {
	return &Service{gen: gen, models: models, logger: logger}
}

type BrandVoice struct {
	Tone  string `json:"tone"`
	Style string `json:"style"`
}

type GlobalInfo struct {
	BrandName     string     `json:"brand_name"`
	BrandIndustry string     `json:"brand_industry"`
	BrandVoice    BrandVoice `json:"brand_voice"`
}

type Project struct {
	ProjectURL     string   `json:"project_url"`
	TargetLanguage string   `json:"target_language,omitempty"`
	TargetRegion   string   `json:"target_region,omitempty"`
	TargetKeywords []string `json:"target_keywords,omitempty"`
}

// BrandProfile is the frontend's brand and project configuration.
type BrandProfile struct {
	GlobalInfo GlobalInfo `json:"globalInfo"`
	Projects   []Project  `json:"projects"`
}

// project picks the project whose URL host matches siteURL, or the first one.
func (p BrandProfile) project(siteURL string) (Project, error) {
	if len(p.Projects) == 0 {
		return Project{}, ErrNoProjects
	}
	host := hostname(siteURL)
	for _, proj := range p.Projects {
		if hostname(proj.ProjectURL) == host {
			return proj, nil
		}
	}
	return p.Projects[0], nil
}

func (p Project) language() string {
	if p.TargetLanguage == "" {
		return "English"
	}
	return p.TargetLanguage
}

func (p Project) region() string {
	if p.TargetRegion == "" {
		return "United States"
	}
	return p.TargetRegion
}

func hostname(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// research runs a Google Search grounded text call on the text model.
func (s *Service) research(ctx context.Context, prompt string) (string, error) {
	return gemini.TextWithSearch(ctx, s.gen, gemini.TextRequest{Model: s.models.Text, Prompt: prompt})
}

func (s *Service) jsonText(ctx context.Context, model, prompt string) (string, error) {
	return gemini.JSON(ctx, s.gen, gemini.TextRequest{Model: model, Prompt: prompt})
}

// decodeList accepts either an array or a single object. Anything that is not
// decodable yields an empty list.
func decodeList[T any](text string) []T {
	var list []T
	if err := llmjson.Parse(text, &list); err == nil && list != nil {
		return list
	}
	if len(llmjson.Object(text)) == 0 {
		return []T{}
	}
	var one T
	if err := llmjson.Parse(text, &one); err != nil {
		return []T{}
	}
	return []T{one}
}

// decodeOnto overlays model output onto fallback. Output that does not decode
// leaves the fallback untouched.
func decodeOnto[T any](text string, fallback func() T) T {
	v := fallback()
	if err := llmjson.Parse(text, &v); err != nil {
		return fallback()
	}
	return v
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func joinURLs(competitors []Competitor) string {
	urls := make([]string, 0, len(competitors))
	for _, c := range competitors {
		urls = append(urls, c.URL)
	}
	return strings.Join(urls, ", ")
}
