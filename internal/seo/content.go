package seo

import (
	"context"
	"fmt"
	"strings"

	"gemini-studio/internal/gemini"
	"gemini-studio/internal/llmjson"
)

type Solution struct {
	ID              string   `json:"id"`
	StrategyName    string   `json:"strategyName"`
	SeoGoal         string   `json:"seoGoal"`
	CoreConcept     string   `json:"coreConcept"`
	ContentExamples []string `json:"contentExamples"`
	StrategicReason string   `json:"strategicReason"`
}

// Brief is the content brief an article is written from.
type Brief struct {
	TitleSuggestion    string   `json:"titleSuggestion"`
	TopicSummary       string   `json:"topicSummary"`
	TargetRegion       string   `json:"targetRegion"`
	TargetLanguage     string   `json:"targetLanguage"`
	MainKeyword        string   `json:"mainKeyword"`
	SecondaryKeywords  []string `json:"secondaryKeywords"`
	SuggestedOutline   []string `json:"suggestedOutline"`
	EstimatedWordcount float64  `json:"estimatedWordcount"`
	AIRecommendations  []string `json:"aiRecommendations"`
}

func (b Brief) region() string {
	if b.TargetRegion == "" {
		return "United States"
	}
	return b.TargetRegion
}

func (b Brief) language() string {
	if b.TargetLanguage == "" {
		return "English"
	}
	return b.TargetLanguage
}

type Metadata struct {
	SeoTitle       string `json:"seoTitle"`
	SeoDescription string `json:"seoDescription"`
}

// SolutionBoard proposes three content strategies for the site.
func (s *Service) SolutionBoard(ctx context.Context, siteURL string, competitors []Competitor, report AnalysisReport, profile BrandProfile, userInstructions string) ([]Solution, error) {
	project, err := profile.project(siteURL)
	if err != nil {
		return nil, err
	}

	directive := userInstructions
	if directive == "" {
		directive = "No specific instructions."
	}
	landscape := report.CompetitiveLandscape
	voice := profile.GlobalInfo.BrandVoice

	prompt := fmt.Sprintf(`
You are a world-class SEO Content Strategy Director. Your task is to generate three highly customized and actionable SEO content strategies for your client.

**IMPORTANT**: All output, including strategy names, goals, concepts, examples, and reasons, MUST be in **%s**. The strategies should be tailored for an audience in **%s**.

You must synthesize the following three categories of information to formulate your strategies:
1.  **SEO Analysis Data**:
    - Client Website: %s
    - Competitors: %s
    - Key Insights: The client's main content disadvantage is "%s", and the primary market opportunity is "%s".

2.  **Brand Profile**:
    - Brand Name: %s
    - Brand Industry: %s
    - Brand Voice: %s, %s
    - Target Keywords: %s

3.  **User's Immediate Directive**:
    - %s

**Your Strategic Archetypes (for inspiration)**:
Draw inspiration from the following archetypes. You don't need to create one for each; select and adapt the most suitable combination for the client's situation.
- **Archetype 1: Traffic Magnet**: Aims to build topical authority and capture Top-of-Funnel users. Core method: "Pillar-Spoke" content model.
- **Archetype 2: Decision Engine**: Aims to solve core pain points and influence Middle-of-Funnel users. Core method: "Problem-Solution" and "Comparison" content.
- **Archetype 3: Conversion Accelerator**: Aims to showcase product value and drive Bottom-of-Funnel users. Core method: "Case Studies" and "Creative Use-Cases".

**Your Task**:
Generate a JSON array containing **three** strategic options. For each option:
- `+"`strategyName`"+`: Create a compelling, client-facing strategy title. It should be a call to action that clearly communicates the core value. **Strictly forbid** using internal jargon like "Traffic Magnet," "Decision Engine," or "Conversion Accelerator."
- `+"`seoGoal`"+`: Clearly state the SEO objective for this strategy.
- `+"`coreConcept`"+`: Briefly explain the core idea and execution method.
- `+"`contentExamples`"+`: Provide 2-3 specific article/video title examples that reflect the brand voice and target keywords.
- `+"`strategicReason`"+`: **(Most Important)** In one sentence, explain **why** this strategy is right for this specific client, explicitly linking it to information from the SEO analysis, brand profile, or user directive.

**Output Format**:
Your entire output must be a single, valid JSON array that strictly adheres to the following TypeScript interface. Do not include any text, markdown, or comments outside the JSON array.
`+"```typescript"+`
type SolutionBoard = {
    id: string; // A unique ID, e.g., "sol-1"
    strategyName: string;
    seoGoal: string;
    coreConcept: string;
    contentExamples: string[];
    strategicReason: string;
}[];
`+"```"+`
`,
		project.language(), project.region(),
		siteURL, joinURLs(competitors), landscape.YourDisadvantage, landscape.StrategicOpportunity,
		profile.GlobalInfo.BrandName, profile.GlobalInfo.BrandIndustry, voice.Tone, voice.Style,
		strings.Join(project.TargetKeywords, ", "),
		directive)

	text, err := s.jsonText(ctx, s.models.Text, prompt)
	if err != nil {
		return nil, fmt.Errorf("solution board: %w", err)
	}

	board := decodeList[Solution](text)
	for i := range board {
		if board[i].ID == "" {
			board[i].ID = fmt.Sprintf("sol-%d", i+1)
		}
	}
	return board, nil
}

func fallbackBrief(solution Solution, project Project) Brief {
	name := solution.StrategyName
	if name == "" {
		name = "内容策略"
	}
	return Brief{
		TitleSuggestion:    "终极指南：" + name,
		TopicSummary:       "一篇全面的指南文章",
		TargetRegion:       project.region(),
		TargetLanguage:     project.language(),
		MainKeyword:        "content strategy",
		SecondaryKeywords:  []string{"SEO", "content marketing", "digital marketing"},
		SuggestedOutline:   []string{"Introduction", "## Main Topic 1", "## Main Topic 2", "## Main Topic 3", "Conclusion"},
		EstimatedWordcount: 1500,
		AIRecommendations:  []string{"保持信息丰富且易于理解的语气", "使用项目符号列表和粗体文本来分解复杂信息"},
	}
}

// ContentBrief expands a chosen strategy into a brief. Target region and
// language always come from the matched project.
func (s *Service) ContentBrief(ctx context.Context, solution Solution, siteURL string, report Report, competitors []Competitor, profile BrandProfile, userInstructions string) (*Brief, error) {
	project, err := profile.project(siteURL)
	if err != nil {
		return nil, err
	}

	instructions := userInstructions
	if instructions == "" {
		instructions = "None"
	}

	prompt := fmt.Sprintf(`
You are an expert SEO content strategist. Your task is to create a detailed Content Brief based on a chosen strategy.

**Chosen Strategy**:
- Name: "%s"
- Concept: "%s"

**Input Data**:
- Website: %s
- Brand Profile: %s
- Project Config: %s
- Content SEO Health Score: %g
- Competitors: %s
- User Instructions: %s

**Your Task**:
Generate a comprehensive Content Brief. Your entire output must be a single, valid JSON object that strictly adheres to the TypeScript interface below. All string values MUST be in Chinese.

- `+"`titleSuggestion`"+`: Propose a compelling, SEO-friendly title based on the strategy and keywords.
- `+"`topicSummary`"+`: A brief summary of the article's topic.
- `+"`targetRegion` & `targetLanguage`"+`: Use the values from the project config.
- `+"`mainKeyword` & `secondaryKeywords`"+`: Propose a main keyword and 3-5 secondary keywords.
- `+"`suggestedOutline`"+`: A logical, hierarchical outline with at least 5 main points (H2s).
- `+"`estimatedWordcount`"+`: A reasonable word count estimate.
- `+"`aiRecommendations`"+`: 2-3 actionable recommendations for the AI writer to follow, based on the brand voice and strategy.

`+"```typescript"+`
interface ContentBrief {
    titleSuggestion: string;
    topicSummary: string;
    targetRegion: string;
    targetLanguage: string;
    mainKeyword: string;
    secondaryKeywords: string[];
    suggestedOutline: string[];
    estimatedWordcount: number;
    aiRecommendations: string[];
}
`+"```"+`
`,
		solution.StrategyName, solution.CoreConcept,
		siteURL, indentJSON(profile.GlobalInfo), indentJSON(project),
		report.ContentSeoHealthScore, joinURLs(competitors), instructions)

	text, err := s.jsonText(ctx, s.models.Text, prompt)
	if err != nil {
		return nil, fmt.Errorf("content brief: %w", err)
	}

	brief := decodeOnto(text, func() Brief { return fallbackBrief(solution, project) })
	brief.TargetRegion = project.region()
	brief.TargetLanguage = project.language()
	return &brief, nil
}

// WebResearch gathers talking points for a brief using search grounding.
func (s *Service) WebResearch(ctx context.Context, brief Brief) (string, error) {
	prompt := fmt.Sprintf(`
You are a research assistant. Use Google Search to gather up-to-date information, statistics, and key talking points for an article based on this brief:
- Title: "%s"
- Main Keyword: "%s"
- Secondary Keywords: %s
- Topic Summary: "%s"
- Target Audience: Users in %s who speak %s.

Synthesize your findings into a concise summary of 3-4 paragraphs. This summary will be used by another AI to write the article. Focus on facts, data, and unique angles.
`, brief.TitleSuggestion, brief.MainKeyword, strings.Join(brief.SecondaryKeywords, ", "),
		brief.TopicSummary, brief.region(), brief.language())

	summary, err := s.research(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("web research: %w", err)
	}
	return summary, nil
}

// GenerateOutline refines the brief's outline with research findings. It never
// fails; the brief's suggested outline is returned instead.
func (s *Service) GenerateOutline(ctx context.Context, researchSummary string, brief Brief, profile BrandProfile) []string {
	fallback := brief.SuggestedOutline
	if fallback == nil {
		fallback = []string{}
	}

	voice := profile.GlobalInfo.BrandVoice
	prompt := fmt.Sprintf(`
You are an expert content strategist. Based on the provided research and content brief, refine the suggested outline into a final, detailed strategic outline.

**Research Summary**: %s
**Content Brief**: %s
**Brand Voice**: %s, %s

**Your Task**:
Generate a detailed outline as a JSON array of strings. Each string represents a heading (e.g., "Introduction", "## What is...", "### The importance of...").
- The outline should be logical and comprehensive.
- Incorporate insights from the research summary.
- Ensure the tone of the headings aligns with the brand voice.
- Ensure all key topics from the brief's suggested outline are covered.

Output only the JSON array.
`, researchSummary, indentJSON(brief), voice.Tone, voice.Style)

	text, err := s.jsonText(ctx, s.models.Text, prompt)
	if err != nil {
		s.logger.Warn("outline generation failed, using suggested outline", "error", err)
		return fallback
	}
	var outline []string
	if err := llmjson.Parse(text, &outline); err != nil || outline == nil {
		return fallback
	}
	return outline
}

// WriteArticle drafts the full markdown article on the pro model.
func (s *Service) WriteArticle(ctx context.Context, outline []string, brief Brief, profile BrandProfile, userInstructions string) (string, error) {
	var instructions string
	if userInstructions != "" {
		instructions = "\n**User Instructions**:\n" + userInstructions + "\n"
	}
	wordcount := brief.EstimatedWordcount
	if wordcount <= 0 {
		wordcount = 1500
	}
	voice := profile.GlobalInfo.BrandVoice

	prompt := fmt.Sprintf(`
You are an expert %s writer, specializing in SEO content. Write a full-length article based on the provided outline and brief.

**Outline**:
%s

**Content Brief**: %s
**Brand Profile**: %s
%s

**Writing Instructions**:
- Write in markdown format.
- Adhere strictly to the brand voice: %s, %s.
- Naturally integrate the main and secondary keywords.
- The language MUST be %s.
- The content MUST be engaging and valuable for an audience in %s.
- Do not use placeholders like "[Image]".
- Write approximately %g words.
`, profile.GlobalInfo.BrandIndustry, strings.Join(outline, "\n"),
		indentJSON(brief), indentJSON(profile.GlobalInfo), instructions,
		voice.Tone, voice.Style, brief.language(), brief.region(), wordcount)

	article, err := s.gen.Text(ctx, gemini.TextRequest{Model: s.models.Pro, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("write article: %w", err)
	}
	return article, nil
}

// PolishArticle edits for readability. An empty model reply keeps the input.
func (s *Service) PolishArticle(ctx context.Context, article string) (string, error) {
	prompt := fmt.Sprintf(`
You are a senior editor. Review the following article and polish it for readability and flow.
- Improve sentence structure.
- Correct any grammar or spelling errors.
- Ensure the tone is consistent.
- Do not change the core meaning or structure.
Return only the polished article in markdown format.

**Article**:
---
%s
---
`, article)

	polished, err := s.gen.Text(ctx, gemini.TextRequest{Model: s.models.Text, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("polish article: %w", err)
	}
	if strings.TrimSpace(polished) == "" {
		return article, nil
	}
	return polished, nil
}

// GenerateMetadata writes the meta title and description for an article.
func (s *Service) GenerateMetadata(ctx context.Context, article string, brief Brief) (*Metadata, error) {
	preview := article
	if r := []rune(article); len(r) > 500 {
		preview = string(r[:500]) + "..."
	}

	prompt := fmt.Sprintf(`
You are an SEO expert. Based on the article and content brief, generate an SEO-optimized meta title and meta description.

**Article Content (first 500 words)**:
%s

**Content Brief**:
- Main Keyword: %s
- Title Suggestion: %s

**Requirements**:
- **Meta Title**: Max 60 characters. Must include the main keyword.
- **Meta Description**: Max 160 characters. Must be compelling and include the main keyword.

Return a single JSON object with "seoTitle" and "seoDescription" keys.
`, preview, brief.MainKeyword, brief.TitleSuggestion)

	text, err := s.jsonText(ctx, s.models.Text, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate metadata: %w", err)
	}

	meta := decodeOnto(text, func() Metadata {
		return Metadata{
			SeoTitle:       truncateRunes(brief.TitleSuggestion, 60),
			SeoDescription: truncateRunes(brief.TopicSummary, 160),
		}
	})
	return &meta, nil
}
