package seo

import (
	"context"
	"fmt"
	"strings"

	"gemini-studio/internal/llmjson"

	"golang.org/x/sync/errgroup"
)

// analysisConcurrency caps the competitors analyzed at once.
const analysisConcurrency = 4

type Competitor struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReasonText string `json:"reasonText,omitempty"`
}

type TopArticle struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

type AnalyzedCompetitor struct {
	Competitor
	ContentSeoScore float64     `json:"contentSeoScore"`
	TopArticle      *TopArticle `json:"topArticle,omitempty"`
}

type CompetitiveLandscape struct {
	OverallTrend         string `json:"overallTrend"`
	YourDisadvantage     string `json:"yourDisadvantage"`
	StrategicOpportunity string `json:"strategicOpportunity"`
}

type CompetitorAnalysis struct {
	RAGArticles          []RAGArticle         `json:"ragArticles"`
	CompetitiveLandscape CompetitiveLandscape `json:"competitiveLandscape"`
	Competitors          []AnalyzedCompetitor `json:"competitors"`
}

// AnalysisReport is the part of a competitor analysis later steps read.
type AnalysisReport struct {
	CompetitiveLandscape CompetitiveLandscape `json:"competitiveLandscape"`
}

func fallbackCompetitors() []Competitor {
	return []Competitor{
		{ID: "comp-1", URL: "www.example1.com", ReasonText: "主要竞争对手"},
		{ID: "comp-2", URL: "www.example2.com", ReasonText: "次要竞争对手"},
	}
}

// Competitors identifies the site's main SEO competitors. Failures return two
// placeholder competitors rather than an error.
func (s *Service) Competitors(ctx context.Context, siteURL string, profile BrandProfile, userInstructions string) []Competitor {
	instructions := ""
	if userInstructions != "" {
		instructions = fmt.Sprintf(`用户具体指示: "%s"`, userInstructions)
	}
	researchPrompt := fmt.Sprintf(`
请使用Google搜索，为网站 %s（行业：'%s'）识别出3-5个主要的SEO竞争对手。
对于每个竞争对手，请分析他们的SEO实力，并简要说明为什么他们是竞争对手。
%s
请以列表形式总结你的发现。
`, siteURL, profile.GlobalInfo.BrandIndustry, instructions)

	summary, err := s.research(ctx, researchPrompt)
	if err != nil {
		s.logger.Error("competitor research failed", "url", siteURL, "error", err)
		return fallbackCompetitors()
	}

	structuringPrompt := fmt.Sprintf(`
根据以下竞争对手研究摘要，提取竞争对手信息并格式化为JSON数组。

研究摘要:
---
%s
---

请以一个遵循此TypeScript接口的有效JSON数组格式返回你的发现。不要在JSON数组之外包含任何文本。
`+"```typescript"+`
interface Competitor {
  id: string; // a unique identifier for each competitor, e.g., 'comp-1'
  url: string;
  reasonText?: string;
}
`+"```"+`
`, summary)

	text, err := s.jsonText(ctx, s.models.Text, structuringPrompt)
	if err != nil {
		s.logger.Error("competitor structuring failed", "url", siteURL, "error", err)
		return fallbackCompetitors()
	}

	competitors := decodeList[Competitor](text)
	for i := range competitors {
		if competitors[i].ID == "" {
			competitors[i].ID = fmt.Sprintf("comp-%d", i+1)
		}
	}
	return competitors
}

// CompetitorAnalysis scores each competitor concurrently, then summarizes the
// landscape. A competitor whose analysis fails gets a placeholder entry.
func (s *Service) CompetitorAnalysis(ctx context.Context, competitors []Competitor, report Report, profile BrandProfile) (*CompetitorAnalysis, error) {
	analyzed := make([]AnalyzedCompetitor, len(competitors))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analysisConcurrency)
	for i, c := range competitors {
		g.Go(func() error {
			a, err := s.analyzeCompetitor(gctx, c)
			if err != nil {
				s.logger.Warn("competitor analysis failed", "competitor", c.URL, "error", err)
				a = AnalyzedCompetitor{
					Competitor:      c,
					ContentSeoScore: 70,
					TopArticle: &TopArticle{
						Title:  "Analysis Failed",
						URL:    "https://" + c.URL,
						Reason: "Could not retrieve article due to an API error.",
					},
				}
			}
			analyzed[i] = a
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := s.jsonText(ctx, s.models.Text, landscapePrompt(analyzed, report))
	if err != nil {
		return nil, fmt.Errorf("competitive landscape: %w", err)
	}
	var landscape CompetitiveLandscape
	if err := llmjson.Parse(text, &landscape); err != nil {
		s.logger.Warn("competitive landscape was not valid JSON", "error", err)
	}

	return &CompetitorAnalysis{
		RAGArticles:          SearchRAG(profile.GlobalInfo.BrandIndustry, 3),
		CompetitiveLandscape: landscape,
		Competitors:          analyzed,
	}, nil
}

func (s *Service) analyzeCompetitor(ctx context.Context, c Competitor) (AnalyzedCompetitor, error) {
	found, err := s.research(ctx, fmt.Sprintf(`Using Google Search, find one of the single highest-quality, best-performing blog articles from the website "%s". The link MUST be a specific article, not a homepage or category page. Provide only its full URL and title. If you cannot find one, just say "No suitable article found."`, c.URL))
	if err != nil {
		return AnalyzedCompetitor{}, err
	}

	prompt := fmt.Sprintf(`
You are an expert SEO analyst.
Competitor Website: "%[1]s"
Top Article Search Result: "%[2]s"

Your tasks:
1.  Based on the search result, extract the article's full URL and title. If no article was found, the URL and title should be null.
2.  Evaluate the overall content quality of "%[1]s" (considering its expertise, authoritativeness, trustworthiness, SEO, and user experience). Provide a single "contentSeoScore" from 0 to 100.
3.  If a top article was found, provide a brief "reason" explaining why it is a good, high-quality article. If not, this should be null.

Provide your final output as a single, valid JSON object adhering to this TypeScript interface. Do not include any other text or markdown.
`+"```typescript"+`
interface AnalyzedCompetitor {
  url: string; // The competitor's URL
  contentSeoScore: number;
  topArticle?: {
      title: string;
      url: string;
      reason: string;
  };
}
`+"```"+`
`, c.URL, found)

	text, err := s.jsonText(ctx, s.models.Text, prompt)
	if err != nil {
		return AnalyzedCompetitor{}, err
	}

	a := AnalyzedCompetitor{Competitor: c}
	if err := llmjson.Parse(text, &a); err != nil {
		s.logger.Warn("competitor analysis was not valid JSON", "competitor", c.URL, "error", err)
		a = AnalyzedCompetitor{Competitor: c}
	}
	if a.ID == "" {
		a.ID = c.ID
	}
	if a.URL == "" {
		a.URL = c.URL
	}
	return a, nil
}

func landscapePrompt(analyzed []AnalyzedCompetitor, report Report) string {
	lines := make([]string, 0, len(analyzed))
	for _, c := range analyzed {
		topic := "N/A"
		if c.TopArticle != nil && c.TopArticle.Title != "" {
			topic = c.TopArticle.Title
		}
		lines = append(lines, fmt.Sprintf("- %s (Content Score: %g). Top article topic: %s", c.URL, c.ContentSeoScore, topic))
	}

	return fmt.Sprintf(`
You are a senior SEO strategist. Based on the following competitor data, provide a high-level analysis of the competitive landscape for the client "%s".

**Competitor Data:**
%s

**Client's Content Disadvantage:**
Based on their SEO report, their content score is low (%g) and they struggle with content depth.

**Your Task:**
Generate a JSON object with three key insights.
**IMPORTANT**: The string values for the keys in the JSON object MUST be in **Chinese**.
1.  **overallTrend**: A 1-2 sentence summary of the content trends you see from the competitors.
2.  **yourDisadvantage**: A 1-2 sentence summary of the client's biggest content weakness compared to these competitors.
3.  **strategicOpportunity**: A 1-2 sentence actionable recommendation for a strategic opportunity.

Your output must be a single, valid JSON object adhering to this interface:
`+"```typescript"+`
interface CompetitiveLandscape {
    overallTrend: string; // Must be in Chinese
    yourDisadvantage: string; // Must be in Chinese
    strategicOpportunity: string; // Must be in Chinese
}
`+"```"+`
`, report.SiteURL, strings.Join(lines, "\n"), report.ContentSeoHealthScore)
}
