package siteprofile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// ErrEmptyContent is returned when the reader produced no text for a page.
var ErrEmptyContent = errors.New("failed to fetch content from URL")

// Reader turns a web page into plain text.
type Reader interface {
	Read(ctx context.Context, pageURL string) (string, error)
}

// ImageSearcher finds image URLs published on a domain.
type ImageSearcher interface {
	SearchImages(ctx context.Context, domain string) ([]string, error)
}

// JinaReader fetches pages through the Jina Reader proxy, which returns the
// rendered page as text.
type JinaReader struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewJinaReader(baseURL, apiKey string) *JinaReader {
	return &JinaReader{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (r *JinaReader) Read(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build reader request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("reader request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("read reader response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("reader returned %d: %s", resp.StatusCode, truncate(string(body), 500))
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", ErrEmptyContent
	}
	return string(body), nil
}

// CSESearcher runs image searches through the Custom Search JSON API.
type CSESearcher struct {
	svc *customsearch.Service
	cx  string
}

func NewCSESearcher(ctx context.Context, apiKey, cx string) (*CSESearcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create custom search client: %w", err)
	}
	return &CSESearcher{svc: svc, cx: cx}, nil
}

func (s *CSESearcher) SearchImages(ctx context.Context, domain string) ([]string, error) {
	res, err := s.svc.Cse.List().
		Q("site:" + domain).
		Cx(s.cx).
		SearchType("image").
		Num(10).
		Safe("active").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}

	urls := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Link != "" {
			urls = append(urls, item.Link)
		}
	}
	return urls, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
