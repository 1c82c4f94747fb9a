package reel

import (
	"context"
	"fmt"

	"gemini-studio/internal/gemini"
)

// ImageInput is the {base64Data, mimeType} pair used by the editing tools.
type ImageInput struct {
	Base64Data string `json:"base64Data"`
	MIMEType   string `json:"mimeType"`
}

func (in ImageInput) decode() (gemini.Media, error) {
	m, err := gemini.InlineImage{Data: in.Base64Data, MIMEType: in.MIMEType}.Decode()
	if err != nil {
		return gemini.Media{}, fmt.Errorf("base64Data: %w", err)
	}
	return m, nil
}

type UpscaleRequest struct {
	ImageInput
	Factor int    `json:"factor"`
	Prompt string `json:"prompt"`
}

const removeBackgroundPrompt = `
# System Role: High-Precision Computer Vision Engine
# Task: Zero-Shot Image Segmentation & Background Removal

# Input: [Uploaded Image]

# Processing Logic (Step-by-Step):
1. **Object Detection:** Identify the salient foreground object(s) with high confidence boundaries.
2. **Mask Generation:** Create a binary alpha mask where Foreground = 1 and Background = 0.
3. **Compositing:** Apply the mask to the original pixel data.
   $$Output_{pixel} = Input_{pixel} \times Mask_{value}$$

# STRICT CONSTRAINTS:
* **PRESERVE PIXELS:** Do NOT regenerate, repaint, or perform 'img2img' on the foreground.
* **NO HALLUCINATIONS:** The texture, lighting, and resolution of the subject must match the source bit-for-bit.
* **OUTPUT:** Return the image with a transparent PNG background.
`

// Upscale regenerates the asset's prompt with Imagen in the reel frame. The
// source image only has to be valid; the factor is informational.
func (s *Service) Upscale(ctx context.Context, req UpscaleRequest) (string, error) {
	if _, err := req.decode(); err != nil {
		return "", err
	}
	s.logger.Info("upscaling asset", "factor", req.Factor)
	media, err := s.gen.Imagen(ctx, req.Prompt, "9:16")
	if err != nil {
		return "", fmt.Errorf("upscale: %w", err)
	}
	return media.Base64(), nil
}

// RemoveBackground asks the flash image model to cut out the foreground.
func (s *Service) RemoveBackground(ctx context.Context, in ImageInput) (string, error) {
	img, err := in.decode()
	if err != nil {
		return "", err
	}
	media, err := s.gen.Image(ctx, gemini.ImageRequest{
		Model:  s.models.Image,
		Prompt: removeBackgroundPrompt,
		Images: []gemini.Media{img},
	})
	if err != nil {
		return "", fmt.Errorf("remove background: %w", err)
	}
	return media.Base64(), nil
}

// ReferenceImage renders a landscape reference image for a design plan.
func (s *Service) ReferenceImage(ctx context.Context, prompt string) (string, error) {
	media, err := s.gen.Imagen(ctx, prompt, "16:9")
	if err != nil {
		return "", fmt.Errorf("reference image: %w", err)
	}
	return media.Base64(), nil
}
