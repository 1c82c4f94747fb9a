package reel

import (
	"context"
	"fmt"
	"strings"

	"gemini-studio/internal/gemini"
	"gemini-studio/internal/llmjson"
)

type EnhancedPrompt struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	FullPrompt  string   `json:"fullPrompt"`
}

type DesignPlan struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Prompt               string `json:"prompt"`
	ReferenceImagePrompt string `json:"referenceImagePrompt"`
}

const enhancedPromptInterface = "```typescript\ninterface EnhancedPrompt {\n  title: string;\n  description: string;\n  tags: string[];\n  fullPrompt: string;\n}\n```"

const veoPromptSpecialist = `You are a Senior VEO 3.1 Prompt Specialist & Cinematic Director. Your task is to transform a user's basic idea into three distinct, professional creative directions for high-end video generation.

The Veo model requires specific prompt engineering to achieve the best results. You must strictly follow these VEO Golden Rules in your ` + "`fullPrompt`" + `:
1. **Subject & Action**: Describe fluid motion, physics, and specific activities clearly (not just who, but *what* they are doing dynamically).
2. **Environment & Lighting**: Include atmospheric details (e.g., volumetric fog, golden hour, cinematic lighting, HDR, neon noir).
3. **Camera Language**: MANDATORY. Use specific cinematic terms (e.g., Drone FPV, Low angle, Dolly zoom, Slow pan, Handheld shake, Bokeh, Rack focus).
4. **Style & Aesthetics**: Specify film stock, render engine, or artistic style (e.g., 35mm film grain, Photorealistic, 8k, Unreal Engine 5 style).

Based on the user's idea, generate three distinct "Video Concept Cards" that tell a story:
- **Option A (Realistic/Cinematic)**: Focus on photorealism, movie-like quality, high-end production value (ARRI/IMAX aesthetics).
- **Option B (Creative/Stylized)**: Focus on unique art styles, animation (e.g., claymation, cyber-anime), or surreal visuals.
- **Option C (Dynamic/Action)**: Focus on speed, intense motion, fast cuts, and visual impact.

For each card, provide:
1. ` + "`title`" + `: A short, catchy title (e.g., "Neon Drift: Cyberpunk").
2. ` + "`description`" + `: A one-sentence summary of the narrative and visual mood.
3. ` + "`tags`" + `: An array of 3-4 relevant keyword tags.
4. ` + "`fullPrompt`" + `: A comprehensive, detailed prompt using the VEO Golden Rules above.

IMPORTANT: Detect the language of the user's idea (it will be either Chinese or English). You MUST generate all content for the cards (titles, descriptions, tags, and full prompts) in that SAME language (or Chinese mixed with English technical terms if the input is Chinese).

Your entire output must be a single, valid JSON array adhering to this TypeScript interface:
` + enhancedPromptInterface

const imageArtDirector = "You are an expert AI Art Director. Your task is to transform a user's basic idea into three distinct, professional creative directions. You must return a valid JSON array of objects."

// EnhancePrompt turns a rough idea into three creative directions. Output that
// cannot be parsed yields the original prompt as the only card.
func (s *Service) EnhancePrompt(ctx context.Context, prompt, model string) ([]EnhancedPrompt, error) {
	system := imageArtDirector
	if gemini.IsVideoModel(model) {
		system = veoPromptSpecialist
	}

	userContent := fmt.Sprintf(`
The user's idea is: "%s"

Based on this idea, generate three distinct "Prompt Optimization Cards". For each card, provide:
1. `+"`title`"+`: A short, catchy title for the creative direction (e.g., "Cinematic Portrait", "Retro Anime Style").
2. `+"`description`"+`: A one-sentence summary of the style and mood.
3. `+"`tags`"+`: An array of 3-4 relevant keyword tags (e.g., ["close-up", "golden hour", "shallow depth of field"]).
4. `+"`fullPrompt`"+`: A complete, detailed, and enhanced prompt for the '%s' model that fully realizes the creative direction.

IMPORTANT: Detect the language of the user's idea (it will be either Chinese or English). You MUST generate all content for the cards (titles, descriptions, tags, and full prompts) in that SAME language.

Your entire output must be a single, valid JSON array adhering to this TypeScript interface:
%s
`, prompt, s.models.Image, enhancedPromptInterface)

	text, err := s.gen.Text(ctx, gemini.TextRequest{
		Model:             s.models.Text,
		Prompt:            userContent,
		SystemInstruction: system,
	})
	if err != nil {
		return nil, fmt.Errorf("enhance prompt: %w", err)
	}

	fallback := []EnhancedPrompt{{
		Title:       "Original Prompt",
		Description: "Your original idea, ready to generate.",
		Tags:        []string{"user-provided"},
		FullPrompt:  prompt,
	}}
	cards := llmjson.ParseOr(text, fallback)
	if cards == nil {
		return fallback, nil
	}
	return cards, nil
}

// DesignPlan researches a topic and structures the findings into three design
// strategies. Video topics are researched with Google Search when available.
func (s *Service) DesignPlan(ctx context.Context, topic, model string) ([]DesignPlan, error) {
	isVideo := gemini.IsVideoModel(model)

	research := gemini.TextRequest{Model: s.models.Text, Prompt: imageResearchPrompt(topic)}
	var summary string
	var err error
	if isVideo {
		research.Prompt = videoResearchPrompt(topic)
		summary, err = gemini.TextWithSearch(ctx, s.gen, research)
	} else {
		summary, err = s.gen.Text(ctx, research)
	}
	if err != nil {
		return nil, fmt.Errorf("design plan research: %w", err)
	}

	structuring := imageStructuringPrompt(topic, summary)
	if isVideo {
		structuring = videoStructuringPrompt(topic, summary)
	}
	text, err := s.gen.Text(ctx, gemini.TextRequest{Model: s.models.Text, Prompt: structuring})
	if err != nil {
		return nil, fmt.Errorf("design plan structuring: %w", err)
	}

	plans := llmjson.ParseOr(text, []DesignPlan{})
	if plans == nil {
		plans = []DesignPlan{}
	}
	return plans, nil
}

func videoResearchPrompt(topic string) string {
	return fmt.Sprintf(`
Act as an AI Cinematography & Motion Trend Researcher.
Conduct a deep dive search on Google for the topic: "%s".

Do NOT just search for general definitions. You must find:
1. **Cinematic Lighting Trends** relevant to this topic (e.g., Volumetric lighting, Rembrandt, Neon noir).
2. **Camera Movement Trends** (e.g., FPV Drone, Dolly Zoom, Orbit shot, Handheld).
3. **Motion Aesthetics** (e.g., Slow motion fluid, Hyper-lapse, Morphing).
4. **Render/Visual Styles** (e.g., Unreal Engine 5, Analog film grain, Claymation).

Detect the language of the topic (Chinese or English). Provide a concise but technical summary in that same language, focusing on "How to shoot it" rather than just "What it is".
`, topic)
}

func imageResearchPrompt(topic string) string {
	return fmt.Sprintf(`
As an AI Art Director and visual trend researcher, research current visual trends, popular aesthetics, color palettes, and best practices related to the topic: "%s".
Detect the language of the topic (Chinese or English) and provide your findings as a detailed text summary in that same language.
`, topic)
}

func videoStructuringPrompt(topic, summary string) string {
	return fmt.Sprintf(`
Act as a VEO 3.1 Creative Director.
Based on the following Visual Research Summary about "%s", create three distinct video production schemes.

Research Summary:
%s

Create these 3 schemes:
- **Scheme A: Cinematic Masterpiece** (Realistic, Physical Light, High-end Camera).
- **Scheme B: Avant-Garde / Stylized** (Unique Art Style, Animation, Mixed Media).
- **Scheme C: Commercial / Dynamic** (High Impact, Fast Paced, Product Showcase).

For each scheme, provide a JSON object with:
1. `+"`title`"+`: Creative title.
2. `+"`description`"+`: Brief visual summary.
3. `+"`referenceImagePrompt`"+`: **CRITICAL**: This must describe a single **KEYFRAME** (First Frame) composition. Use terms like "A still shot of...", "Hyper-realistic photography of...", "Golden ratio composition". Do not describe motion here, only the static visual start point.
4. `+"`prompt`"+`: The video generation prompt. Must follow the **[Subject + Action + Environment + Lighting + Camera + Style]** formula. Include specific camera moves (e.g., "Slow dolly in") and temporal details.

Output: A valid JSON array of 3 objects. Use the same language as the input topic.
`, topic, summary)
}

func imageStructuringPrompt(topic, summary string) string {
	return fmt.Sprintf(`
Based on the following research summary about the topic "%s", create three distinct creative strategies.

**Research Summary**:
---
%s
---

**IMPORTANT**:
- You MUST detect the language from the research summary (it will be either Chinese or English).
- You MUST generate all parts of your response (title, description, and both prompts) exclusively in that SAME language. Do not mix languages.

**Output Format**:
Return a valid JSON array of three objects adhering to this TypeScript interface. Do not include any text outside the JSON.
`+"```typescript"+`
interface DesignPlanWithImagePrompt {
  title: string; // A creative title for the design strategy.
  description: string; // A short explanation of the visual direction.
  prompt: string; // A detailed, ready-to-use prompt for the FINAL image creation if the user chooses this plan.
  referenceImagePrompt: string; // A separate, detailed prompt specifically for generating a high-quality REFERENCE image that visually represents this strategy's mood and style.
}
`+"```"+`
`, topic, summary)
}

// SummarizePrompt shortens a generation prompt into a title of about seven
// words, in the prompt's own language.
func (s *Service) SummarizePrompt(ctx context.Context, prompt string) (string, error) {
	apiPrompt := fmt.Sprintf(`
Summarize the following image generation prompt into a very short, concise title (max 7 words).
The summary should capture the main subject and style. Do not use quotation marks.
The summary should be in the same language as the original prompt.

Example 1:
Prompt: "A professional e-commerce product shot of a stylish black chronograph watch on a textured dark marble surface, dramatic studio lighting, macro details."
Summary: Stylish Black Chronograph Watch

Example 2:
Prompt: "为Ulanzi品牌设计的EDM邮件视觉图，呈现一个富有远见和未来感的高科技概念实验室，主视觉将Ulanzi产品——特别是F38快拆系统、一个流线型三脚架和一块先进的LED面板——展示在发光、半透明的平台上"
Summary: Ulanzi品牌EDM高科技视觉图

Your turn.
Prompt: "%s"
Summary:
`, prompt)

	text, err := s.gen.Text(ctx, gemini.TextRequest{Model: s.models.Text, Prompt: apiPrompt})
	if err != nil {
		return "", fmt.Errorf("summarize prompt: %w", err)
	}
	if summary := strings.TrimSpace(text); summary != "" {
		return summary, nil
	}
	return truncateRunes(prompt, 40) + "...", nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
