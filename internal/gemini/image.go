package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Image generates with a native image model. Input images are sent ahead of the
// prompt, so the same call covers text-to-image and editing.
func (c *Client) Image(ctx context.Context, req ImageRequest) (*Media, error) {
	model := c.model(req.Model, c.models.Image)

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if req.AspectRatio != "" {
		config.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}

	c.logger.Info("generating image", "model", model, "inputs", len(req.Images), "aspect_ratio", req.AspectRatio)

	response, err := c.client.Models.GenerateContent(ctx, model, userContent(req.Prompt, req.Images), config)
	if err != nil {
		return nil, fmt.Errorf("error generating image: %w", err)
	}
	if response == nil {
		return nil, ErrNoImage
	}

	for _, candidate := range response.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mimeType := part.InlineData.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &Media{Data: part.InlineData.Data, MIMEType: mimeType}, nil
			}
		}
	}
	return nil, ErrNoImage
}

// Imagen generates one image with the Imagen model. When Imagen is unavailable the
// pro native image model is used instead.
func (c *Client) Imagen(ctx context.Context, prompt, aspectRatio string) (*Media, error) {
	config := &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    aspectRatio,
	}

	response, err := c.client.Models.GenerateImages(ctx, c.models.Imagen, prompt, config)
	if err == nil && response != nil {
		for _, genImage := range response.GeneratedImages {
			if genImage.Image != nil && len(genImage.Image.ImageBytes) > 0 {
				mimeType := genImage.Image.MIMEType
				if mimeType == "" {
					mimeType = "image/png"
				}
				return &Media{Data: genImage.Image.ImageBytes, MIMEType: mimeType}, nil
			}
		}
		err = ErrNoImage
	}

	c.logger.Warn("imagen failed, falling back to native image model", "model", c.models.Imagen, "error", err)
	return c.Image(ctx, ImageRequest{
		Model:       c.models.ImagePro,
		Prompt:      prompt,
		AspectRatio: aspectRatio,
	})
}
