package seo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gemini-studio/internal/gemini"

	"google.golang.org/genai"
)

const (
	IntentSEO             = "SEO"
	IntentImageGeneration = "IMAGE_GENERATION"
	IntentVideoGeneration = "VIDEO_GENERATION"
	IntentOther           = "OTHER"
)

// intentTimeout bounds the routing model call; the regex fallbacks answer
// when it runs out.
const intentTimeout = 8 * time.Second

var (
	videoKeywords = regexp.MustCompile(`(?i)(生成|创建|制作|create|generate|make).*?(视频|video)`)
	imageKeywords = regexp.MustCompile(`(?i)(生成|创建|制作|draw|create|generate|make).*?(图片|照片|图像|image|picture|photo)`)
	urlLike       = regexp.MustCompile(`(?i)(https?://)?[\da-z.-]+\.[a-z.]{2,6}[/\w .-]*/?`)

	urlWithProtocol = regexp.MustCompile(`(?i)https?://[^\s\x{4e00}-\x{9fa5}]+`)
	bareDomain      = regexp.MustCompile(`(?i)^(?:www\.)?[a-z0-9][a-z0-9-]*[a-z0-9]?\.[a-z]{2,6}(?:\.[a-z]{2,6})?$`)
)

type Intent struct {
	Intent string `json:"intent"`
	URL    string `json:"url"`
	Query  string `json:"query"`
}

var routeTool = &genai.FunctionDeclaration{
	Name:        "route_user_request",
	Description: "Determines the user's intent and extracts relevant information for routing.",
	Parameters: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"intent": {
				Type:        genai.TypeString,
				Description: "The user's primary intent. Must be one of: 'SEO', 'IMAGE_GENERATION', 'VIDEO_GENERATION', 'OTHER'.",
			},
			"url": {
				Type:        genai.TypeString,
				Description: "The full URL or domain name extracted from the user's query, if the intent is 'SEO'. **IMPORTANT**: Extract ONLY the domain name (e.g., 'www.nike.com') or full URL (e.g., 'https://www.apple.com'), without any additional descriptive text, Chinese characters, or trailing words.",
			},
			"query": {
				Type:        genai.TypeString,
				Description: "The user's original query or a cleaned-up version for image generation.",
			},
		},
		Required: []string{"intent", "query"},
	},
}

// AnalyzeIntent routes a chat prompt to the SEO, image or video flow. Obvious
// video requests skip the model; model failures fall back to keyword rules.
func (s *Service) AnalyzeIntent(ctx context.Context, prompt string) (*Intent, error) {
	if videoKeywords.MatchString(prompt) {
		return &Intent{Intent: IntentVideoGeneration, Query: prompt}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()
	call, err := s.gen.FunctionCall(callCtx, gemini.FunctionRequest{
		Model:        s.models.Text,
		Prompt:       routingPrompt(prompt),
		Declarations: []*genai.FunctionDeclaration{routeTool},
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("intent analysis failed, using fallback", "error", err)
	}

	if call != nil && call.Args != nil {
		intent := &Intent{
			Intent: gemini.Args(call, "intent"),
			URL:    ExtractCleanURL(gemini.Args(call, "url")),
			Query:  gemini.Args(call, "query"),
		}
		if intent.Intent == "" {
			intent.Intent = IntentOther
		}
		if intent.Query == "" {
			intent.Query = prompt
		}
		return intent, nil
	}

	return fallbackIntent(prompt), nil
}

func fallbackIntent(prompt string) *Intent {
	if raw := urlLike.FindString(prompt); raw != "" {
		if clean := ExtractCleanURL(raw); clean != "" {
			return &Intent{Intent: IntentSEO, URL: clean, Query: prompt}
		}
	}
	switch {
	case videoKeywords.MatchString(prompt):
		return &Intent{Intent: IntentVideoGeneration, Query: prompt}
	case imageKeywords.MatchString(prompt):
		return &Intent{Intent: IntentImageGeneration, Query: prompt}
	default:
		return &Intent{Intent: IntentOther, Query: prompt}
	}
}

func routingPrompt(prompt string) string {
	return fmt.Sprintf(`
Analyze the user's request and determine their intent.

User Request: "%s"

**Routing Logic**:
1.  If the request is about SEO analysis, blog writing, content strategy, or clearly contains a website URL for analysis, the intent is "SEO". Extract the URL.
2.  If the request contains keywords like "生成", "创建", "制作", "draw", "create", "generate", "make" combined with "图片", "照片", "图像", "image", "picture", "photo", or is about creating/generating images, the intent is "IMAGE_GENERATION".
3.  If the request contains keywords like "生成", "创建", "制作", "create", "generate", "make" combined with "视频", "video", or is about creating/generating videos, the intent is "VIDEO_GENERATION".
4.  For anything else, the intent is "OTHER".

Call the 'route_user_request' function with the determined intent and extracted information.
`, prompt)
}

// ExtractCleanURL pulls a URL or bare domain out of text that may carry extra
// words, e.g. "www.nike.com进行SEO内容创作" yields "www.nike.com". It returns ""
// when nothing URL-like is found.
func ExtractCleanURL(s string) string {
	if s == "" {
		return ""
	}
	if m := urlWithProtocol.FindString(s); m != "" {
		return strings.TrimRight(m, ".,;!?")
	}
	// A bare domain ends where a run of host characters meets a boundary. The
	// earliest start inside that run that still forms a domain wins, so
	// "blog.company.com" inside CJK text yields "company.com".
	for i := 0; i < len(s); {
		if !isHostByte(s[i]) {
			i++
			continue
		}
		start := i
		for i < len(s) && isHostByte(s[i]) {
			i++
		}
		if !domainBoundary(s[i:]) {
			continue
		}
		for j := start; j < i; j++ {
			if bareDomain.MatchString(s[j:i]) {
				return s[j:i]
			}
		}
	}
	return ""
}

func isHostByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '.' || c == '-'
}

// domainBoundary reports whether a bare domain may end before rest: at the end
// of input, whitespace, or a CJK ideograph.
func domainBoundary(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return unicode.IsSpace(r) || (r >= 0x4e00 && r <= 0x9fa5)
}
