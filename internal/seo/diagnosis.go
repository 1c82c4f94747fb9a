package seo

import (
	"context"
	"fmt"
)

type ReportItem struct {
	Analysis       string `json:"analysis"`
	Recommendation string `json:"recommendation"`
}

type KeywordTopicFit struct {
	ReportItem
	TopicalKeywords []string `json:"topicalKeywords"`
}

// Report is the content SEO diagnosis of a site.
type Report struct {
	SiteURL                string          `json:"siteUrl"`
	ContentSeoHealthScore  float64         `json:"contentSeoHealthScore"`
	CoreInsight            string          `json:"coreInsight"`
	KeywordTopicFit        KeywordTopicFit `json:"keywordTopicFit"`
	TopicalAuthority       ReportItem      `json:"topicalAuthority"`
	UserIntentCoverage     ReportItem      `json:"userIntentCoverage"`
	ContentDiscoverability ReportItem      `json:"contentDiscoverability"`
}

func fallbackReport(siteURL string) Report {
	return Report{
		SiteURL:               siteURL,
		ContentSeoHealthScore: 68,
		CoreInsight:           "网站在内容SEO方面有一定基础，但需要改进。",
		KeywordTopicFit: KeywordTopicFit{
			ReportItem: ReportItem{
				Analysis:       "内容主要集中在产品页面，缺少解决用户早期认知阶段问题的博客文章。",
				Recommendation: "创建入门指南类内容，以吸引更广泛的受众。",
			},
			TopicalKeywords: []string{"general", "content"},
		},
		TopicalAuthority: ReportItem{
			Analysis:       "缺乏将相关内容链接在一起的支柱页面或内容中心。",
			Recommendation: "建立一个内容中心，并将其链接到所有相关的博客文章和产品页面。",
		},
		UserIntentCoverage: ReportItem{
			Analysis:       "网站在交易意图方面表现良好，但在信息和商业调查意图方面内容覆盖不足。",
			Recommendation: "发布产品比较文章和深入的材料指南，以满足用户的研究需求。",
		},
		ContentDiscoverability: ReportItem{
			Analysis:       "robots.txt 文件没有明显问题。",
			Recommendation: "通过在社交媒体和相关论坛上积极推广新内容，专注于改善站外信号。",
		},
	}
}

// Diagnosis researches a site and structures the findings into a Report. Any
// field the model leaves out keeps its default.
func (s *Service) Diagnosis(ctx context.Context, siteURL string) (*Report, error) {
	summary, err := s.research(ctx, diagnosisResearchPrompt(siteURL))
	if err != nil {
		return nil, fmt.Errorf("seo diagnosis research: %w", err)
	}

	text, err := s.jsonText(ctx, s.models.Pro, diagnosisStructuringPrompt(siteURL, summary))
	if err != nil {
		s.logger.Error("seo diagnosis structuring failed, using defaults", "url", siteURL, "error", err)
		text = "{}"
	}

	report := decodeOnto(text, func() Report { return fallbackReport(siteURL) })
	report.SiteURL = siteURL
	return &report, nil
}

func diagnosisResearchPrompt(siteURL string) string {
	return fmt.Sprintf(`
You are an expert SEO analyst. Using Google Search as your tool, conduct a comprehensive content-focused SEO diagnosis for the website "%[1]s".

Your research must cover these four dimensions:
1.  **Keyword-Topic Fit**: Analyze the content on "site:%[1]s". What are the top 3-5 main topics or content clusters? How well do these topics align with what you can infer is their core business?
2.  **Topical Authority**: Still searching within "site:%[1]s", look for evidence of a "Pillar-Spoke" model or deep content hubs. Does the site have comprehensive guides that link to smaller, related articles, or is the content more fragmented and standalone?
3.  **User Intent Coverage**: Examine the types of content on "site:%[1]s". Is there a good balance of informational content (e.g., "how-to", "what is"), commercial investigation content (e.g., "best", "review", "vs."), and transactional content (product pages)? Identify any obvious gaps.
4.  **Content Discoverability**: Check the "site:%[1]s/robots.txt" for any major blocking rules that would prevent content from being crawled. Use the "site:%[1]s" search operator to get a general sense of how many pages are indexed. Note any immediate red flags.

After your research, synthesize your findings into a detailed, structured summary. This summary will be used by another AI to generate a JSON report. Be thorough and provide clear analysis for each dimension.
`, siteURL)
}

func diagnosisStructuringPrompt(siteURL, summary string) string {
	return fmt.Sprintf(`
Based on the following SEO research summary for the website "%s", generate a final report in a single, valid JSON object.

**Research Summary**:
---
%s
---

**Your Task**:
Adhere strictly to the TypeScript interface below.
- **IMPORTANT**: The values for `+"`coreInsight`, `analysis`, and `recommendation`"+` fields MUST be in **Chinese**.
- The `+"`topicalKeywords`"+` array must contain the original English keywords.
- For each of the four main dimensions, provide a concise `+"`analysis`"+` and a single, highly actionable `+"`recommendation`"+`.
- Calculate a final `+"`contentSeoHealthScore`"+` (0-100).
- Write a single-sentence `+"`coreInsight`"+`.

Your entire output must be ONLY the JSON object, with no other text or markdown.

**TypeScript Interface**:
`+"```typescript"+`
interface ReportItem {
  analysis: string; // Must be in Chinese
  recommendation: string; // Must be in Chinese
}

interface KeywordTopicFit extends ReportItem {
    topicalKeywords: string[]; // Must be in English
}

interface SeoDiagnosisReport {
    siteUrl: string;
    contentSeoHealthScore: number;
    coreInsight: string; // Must be in Chinese
    keywordTopicFit: KeywordTopicFit;
    topicalAuthority: ReportItem;
    userIntentCoverage: ReportItem;
    contentDiscoverability: ReportItem;
}
`+"```"+`
`, siteURL, summary)
}
