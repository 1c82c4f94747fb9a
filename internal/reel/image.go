package reel

import (
	"context"
	"fmt"
	"strings"

	"gemini-studio/internal/gemini"
)

// ImageRequest is the body of the standalone image studio generate call.
type ImageRequest struct {
	Prompt      string               `json:"prompt"`
	Images      []gemini.InlineImage `json:"images"`
	AspectRatio string               `json:"aspectRatio"`
	ModelLevel  string               `json:"modelLevel"`
}

// RenderImage generates a single image and returns it as bare base64. Unlike
// Generate it defaults to a square frame and never injects Brand DNA.
func (s *Service) RenderImage(ctx context.Context, req ImageRequest) (string, error) {
	images, err := decodeImages(req.Images)
	if err != nil {
		return "", err
	}
	level := orDefault(req.ModelLevel, "banana")
	media, err := s.gen.Image(ctx, gemini.ImageRequest{
		Model:       gemini.ResolveImageModel(s.models, level),
		Prompt:      req.Prompt,
		Images:      images,
		AspectRatio: orDefault(req.AspectRatio, "1:1"),
	})
	if err != nil {
		return "", err
	}
	return media.Base64(), nil
}

// Chat commands the frontend prepends to inspiration requests.
var inspirationCommands = strings.NewReplacer("创建AI图片", "", "创建AI视频", "")

// Inspiration renders a square mood image for a chat prompt. The flash image
// model is tried first and the pro model is used when it fails.
func (s *Service) Inspiration(ctx context.Context, prompt string) (string, error) {
	req := gemini.ImageRequest{
		Model:       s.models.Image,
		Prompt:      strings.TrimSpace(inspirationCommands.Replace(prompt)),
		AspectRatio: "1:1",
	}
	media, err := s.gen.Image(ctx, req)
	if err != nil {
		s.logger.Warn("flash image failed for inspiration, retrying with pro model", "error", err)
		req.Model = s.models.ImagePro
		media, err = s.gen.Image(ctx, req)
		if err != nil {
			return "", fmt.Errorf("inspiration: %w", err)
		}
	}
	return media.Base64(), nil
}
