// Package branddna extracts a brand's visual guidelines from its assets,
// stores them as per-user profiles and injects them into generation prompts.
package branddna

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gemini-studio/internal/gemini"
	"gemini-studio/internal/llmjson"
)

// DNA is the set of visual attributes extracted from brand assets.
type DNA struct {
	VisualStyle        string `json:"visualStyle"`
	ColorPalette       string `json:"colorPalette"`
	Mood               string `json:"mood"`
	NegativeConstraint string `json:"negativeConstraint"`
	MotionStyle        string `json:"motionStyle"`
}

// FallbackDNA is returned whenever extraction fails.
var FallbackDNA = DNA{
	VisualStyle:        "Clean and professional",
	ColorPalette:       "Neutral tones",
	Mood:               "Trustworthy",
	NegativeConstraint: "Distorted visuals",
	MotionStyle:        "Smooth and steady",
}

type ExtractRequest struct {
	LogoImage       *gemini.InlineImage  `json:"logoImage,omitempty"`
	ReferenceImages []gemini.InlineImage `json:"referenceImages,omitempty"`
	Description     string               `json:"description"`
	VideoURLs       []string             `json:"videoUrls,omitempty"`
}

// ErrNoImages is returned when neither a logo nor references are supplied.
var ErrNoImages = errors.New("at least one image (logo or reference) is required")

func (r *ExtractRequest) Validate() error {
	if r.LogoImage == nil && len(r.ReferenceImages) == 0 {
		return ErrNoImages
	}
	return nil
}

const systemInstruction = `You are a Senior Art Director and Brand Specialist.
Your task is to analyze brand visual assets (Logo, Reference Images, and potentially Video URLs) along with a description to extract precise, structured visual guidelines (Brand DNA).

ROLE:
- Analyze the **Logo** (if provided) for Brand Color Palette.
- Analyze the **Reference Images** for Visual Style, Photography Direction, Lighting, and Mood.
- If **Video URLs** are provided, use Google Search to find information about their visual style (cinematography, camera movement, pace) to extract "Motion Style".
- Synthesize these into a cohesive "Visual System".`

// Extractor runs Brand DNA extraction against a Generator.
type Extractor struct {
	gen    gemini.Generator
	model  string
	logger *slog.Logger
}

func NewExtractor(gen gemini.Generator, model string, logger *slog.Logger) *Extractor {
	return &Extractor{gen: gen, model: model, logger: logger}
}

// Extract analyzes the assets. Model and parsing failures yield FallbackDNA;
// only undecodable input images are reported as errors.
func (e *Extractor) Extract(ctx context.Context, req ExtractRequest) (DNA, error) {
	if err := req.Validate(); err != nil {
		return DNA{}, err
	}

	var images []gemini.Media
	if req.LogoImage != nil {
		logo, err := req.LogoImage.Decode()
		if err != nil {
			return DNA{}, fmt.Errorf("logoImage: %w", err)
		}
		images = append(images, logo)
	}
	for i, ref := range req.ReferenceImages {
		img, err := ref.Decode()
		if err != nil {
			return DNA{}, fmt.Errorf("referenceImages[%d]: %w", i, err)
		}
		images = append(images, img)
	}

	textReq := gemini.TextRequest{
		Model:  e.model,
		Prompt: systemInstruction + "\n\n" + analysisPrompt(req),
		Images: images,
	}

	var text string
	var err error
	if len(req.VideoURLs) > 0 {
		text, err = gemini.TextWithSearch(ctx, e.gen, textReq)
	} else {
		text, err = e.gen.Text(ctx, textReq)
	}
	if err != nil {
		e.logger.Error("brand dna extraction failed", "error", err)
		return FallbackDNA, nil
	}
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("brand dna extraction returned no text")
		return FallbackDNA, nil
	}

	dna := llmjson.ParseOr(text, FallbackDNA)
	return dna, nil
}

func analysisPrompt(req ExtractRequest) string {
	logoSection := "No Logo provided."
	if req.LogoImage != nil {
		logoSection = "Asset 1 is the BRAND LOGO. Use it to determine the primary brand colors."
	}
	refSection := ""
	if len(req.ReferenceImages) > 0 {
		refSection = fmt.Sprintf("The remaining %d images are STYLE REFERENCES. Use them to determine lighting, composition, and mood.", len(req.ReferenceImages))
	}

	videoSection := "No video references provided."
	if len(req.VideoURLs) > 0 {
		videoSection = fmt.Sprintf(`
**VIDEO ANALYSIS TASK:**
The user provided these video references: %s.
Since you cannot watch them directly, use your **Google Search tool** to find descriptions, reviews, or technical breakdowns of these videos or the channel's general style.
Look for keywords related to: Camera Movement (e.g., handheld, drone, stable), Pacing (e.g., fast cut, slow motion), and Atmosphere.
Summarize this into a "Motion Style" string suitable for video generation prompts.
`, strings.Join(req.VideoURLs, ", "))
	}

	return fmt.Sprintf(`Analyze the provided assets and brand description: "%s".

%s
%s

%s

Extract the following "Brand DNA" components:

1. **Visual Style**: Describe composition, lighting, texture, and rendering style. (e.g., "Matte finish, soft diffused lighting, centered composition, minimalist").
2. **Color Palette**: Describe key colors and tonal balance. (e.g., "Primary Purple #6366F1, Dark Background, high key").
3. **Mood**: Describe the emotional atmosphere. (e.g., "Serene, organic, trustworthy, futuristic").
4. **Negative Constraints**: What visual elements MUST be avoided? (e.g., "No neon, no grunge, no dark shadows").
5. **Motion Style**: (If videos provided) Describe the movement/pace. If no videos, infer a safe default based on Visual Style (e.g. if 'Serene' -> 'Slow smooth pan').

Return result as JSON:
{
    "visualStyle": "string",
    "colorPalette": "string",
    "mood": "string",
    "negativeConstraint": "string",
    "motionStyle": "string"
}`, req.Description, logoSection, refSection, videoSection)
}
