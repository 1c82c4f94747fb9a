package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gemini-studio/internal/api"
	"gemini-studio/internal/branddna"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/middleware"
	"gemini-studio/internal/reel"
	"gemini-studio/internal/seo"
	"gemini-studio/internal/storage"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxDownloadBytes bounds media fetched by upload_media from a URL.
const maxDownloadBytes = 256 << 20

type ReelImageInput struct {
	Prompt            string `json:"prompt" jsonschema:"Detailed description of the image to generate"`
	Model             string `json:"model,omitempty" jsonschema:"Image model id: banana (flash, default) or banana_pro"`
	AspectRatio       string `json:"aspect_ratio,omitempty" jsonschema:"Aspect ratio such as 9:16 (default), 1:1 or 16:9"`
	BrandDNAProfileID string   `json:"brand_dna_profile_id,omitempty" jsonschema:"Optional Brand DNA profile whose style is injected into the prompt"`
	ImageObjectKeys   []string `json:"image_object_keys,omitempty" jsonschema:"Object keys returned by upload_media or a previous generation, used as reference images"`
}

type ReelImageOutput struct {
	AssetID     string `json:"asset_id"`
	ObjectKey   string `json:"object_key"`
	DownloadURL string `json:"download_url,omitempty"`
	URI         string `json:"uri,omitempty"`
	MIMEType    string `json:"mime_type"`
	Model       string `json:"model"`
	GeneratedAt string `json:"generated_at"`
}

type ReelVideoInput struct {
	Prompt            string `json:"prompt" jsonschema:"Scene, action, camera movement and style of the 8 second clip"`
	AspectRatio       string `json:"aspect_ratio,omitempty" jsonschema:"9:16 (default) or 16:9"`
	BrandDNAProfileID string   `json:"brand_dna_profile_id,omitempty" jsonschema:"Optional Brand DNA profile whose style and motion are injected into the prompt"`
	ImageObjectKeys   []string `json:"image_object_keys,omitempty" jsonschema:"Up to two object keys used as first and last frame"`
}

type ReelVideoOutput struct {
	AssetID     string `json:"asset_id"`
	VideoURL    string `json:"video_url"`
	Status      string `json:"status"`
	GeneratedAt string `json:"generated_at"`
}

type EnhancePromptInput struct {
	Prompt string `json:"prompt" jsonschema:"The rough idea to expand"`
	Model  string `json:"model,omitempty" jsonschema:"Target model id; anything containing veo gets video oriented prompts"`
}

type EnhancePromptOutput struct {
	Prompts []reel.EnhancedPrompt `json:"prompts"`
}

type BrandDNAInput struct {
	LogoData        string   `json:"logo_data,omitempty" jsonschema:"Base64 logo image, plain or as a data URL"`
	LogoMIMEType    string   `json:"logo_mime_type,omitempty" jsonschema:"MIME type of the logo, image/png by default"`
	ReferenceImages []string `json:"reference_images,omitempty" jsonschema:"Base64 reference images as data URLs"`
	Description     string   `json:"description,omitempty" jsonschema:"Free text description of the brand"`
	VideoURLs       []string `json:"video_urls,omitempty" jsonschema:"Public video URLs whose motion style should be analyzed"`
}

type SEODiagnosisInput struct {
	URL string `json:"url" jsonschema:"Site URL or bare domain to diagnose"`
}

type UploadMediaInput struct {
	Data     string `json:"data,omitempty" jsonschema:"Base64 encoded media data. Required if url is not provided."`
	URL      string `json:"url,omitempty" jsonschema:"URL of the media to download and upload. Required if data is not provided."`
	MIMEType string `json:"mime_type" jsonschema:"MIME type of the media, e.g. image/png or video/mp4"`
	Prefix   string `json:"prefix,omitempty" jsonschema:"Prefix for the stored object key (default: upload)"`
}

func (a *app) mcpServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serviceName,
		Version: version,
	}, nil)
	a.registerTools(server)
	return server
}

func (a *app) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reel_generate_image",
		Description: "Generate a reel image with Gemini native image output. The image is saved to storage and returned as an object key plus download URL when storage is remote. Optionally applies a saved Brand DNA profile.\n\nTo edit or combine existing images, upload them with upload_media first and pass the returned object keys in image_object_keys.",
	}, a.handleReelImage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reel_generate_video",
		Description: "Generate an 8-second Veo video from a text prompt. Blocks until the operation finishes and returns the signed video URL. Pass object keys from upload_media in image_object_keys to animate from a first frame, or between a first and last frame.",
	}, a.handleReelVideo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reel_enhance_prompt",
		Description: "Expand a rough idea into several detailed generation prompts with titles and tags.",
	}, a.handleEnhancePrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "brand_dna_extract",
		Description: "Extract Brand DNA (visual style, color palette, mood, negative constraint, motion style) from a logo and reference images. At least one image is required.",
	}, a.handleBrandDNA)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "seo_diagnosis",
		Description: "Run a content SEO diagnosis of a website: health score, core insight, keyword fit, topical authority, intent coverage and discoverability.",
	}, a.handleSEODiagnosis)

	mcp.AddTool(server, &mcp.Tool{
		Name: "upload_media",
		Description: `Upload an image or video to storage. Returns an object_key and, for remote storage, a download URL.

INPUT METHODS:
1. base64 data: pass the encoded file via 'data' with 'mime_type'.
2. URL: pass a publicly accessible URL via 'url' with 'mime_type'.

Do NOT read large base64 files into your context; pass the string directly to the tool parameter.`,
	}, a.handleUploadMedia)
}

// toolUID is the caller's uid when the MCP request carried a Firebase token,
// or "service" for static service tokens and stdio.
func toolUID(ctx context.Context) string {
	if u, ok := middleware.UserFromContext(ctx); ok && u.UID != "" {
		return u.UID
	}
	return "service"
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}

func (a *app) handleReelImage(ctx context.Context, req *mcp.CallToolRequest, input ReelImageInput) (*mcp.CallToolResult, ReelImageOutput, error) {
	if input.Prompt == "" {
		return nil, ReelImageOutput{}, fmt.Errorf("prompt is required")
	}
	model := input.Model
	if model == "" || gemini.IsVideoModel(model) {
		model = "banana"
	}
	images, err := a.storedImages(ctx, input.ImageObjectKeys)
	if err != nil {
		return nil, ReelImageOutput{}, err
	}

	asset, err := a.reel.Generate(ctx, toolUID(ctx), reel.GenerateRequest{
		Prompt:            input.Prompt,
		Model:             model,
		Images:            images,
		AspectRatio:       input.AspectRatio,
		BrandDNAProfileID: input.BrandDNAProfileID,
	})
	if err != nil {
		return nil, ReelImageOutput{}, fmt.Errorf("image generation failed: %w", err)
	}

	media, err := gemini.InlineImage{Data: asset.Src}.Decode()
	if err != nil {
		return nil, ReelImageOutput{}, err
	}
	stored, err := a.storage.Store(ctx, media.Data, media.MIMEType, "reel_image")
	if err != nil {
		return nil, ReelImageOutput{}, fmt.Errorf("failed to store image: %w", err)
	}
	a.logger.Info("stored generated image", "asset_id", asset.AssetID, "object_key", stored.ObjectKey)

	out := ReelImageOutput{
		AssetID:     asset.AssetID,
		ObjectKey:   stored.ObjectKey,
		URI:         stored.URI,
		MIMEType:    media.MIMEType,
		Model:       model,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
	if a.storage.IsRemote() {
		out.DownloadURL = stored.Location
		return textResult("Image generated.\nObject Key: %s\nDownload URL: %s", out.ObjectKey, out.DownloadURL), out, nil
	}
	return textResult("Image generated.\nStored at: %s", stored.Location), out, nil
}

func (a *app) handleReelVideo(ctx context.Context, req *mcp.CallToolRequest, input ReelVideoInput) (*mcp.CallToolResult, ReelVideoOutput, error) {
	if input.Prompt == "" {
		return nil, ReelVideoOutput{}, fmt.Errorf("prompt is required")
	}
	if len(input.ImageObjectKeys) > 2 {
		return nil, ReelVideoOutput{}, fmt.Errorf("at most two image_object_keys (first and last frame) are accepted")
	}
	images, err := a.storedImages(ctx, input.ImageObjectKeys)
	if err != nil {
		return nil, ReelVideoOutput{}, err
	}

	asset, err := a.reel.Generate(ctx, toolUID(ctx), reel.GenerateRequest{
		Prompt:            input.Prompt,
		Model:             "veo",
		Images:            images,
		AspectRatio:       input.AspectRatio,
		BrandDNAProfileID: input.BrandDNAProfileID,
	})
	if err != nil {
		return nil, ReelVideoOutput{}, fmt.Errorf("video generation failed: %w", err)
	}

	out := ReelVideoOutput{
		AssetID:     asset.AssetID,
		VideoURL:    asset.Src,
		Status:      asset.Status,
		GeneratedAt: time.Now().Format(time.RFC3339),
	}
	return textResult("Video generated.\nURL: %s", out.VideoURL), out, nil
}

func (a *app) handleEnhancePrompt(ctx context.Context, req *mcp.CallToolRequest, input EnhancePromptInput) (*mcp.CallToolResult, EnhancePromptOutput, error) {
	if input.Prompt == "" {
		return nil, EnhancePromptOutput{}, fmt.Errorf("prompt is required")
	}
	prompts, err := a.reel.EnhancePrompt(ctx, input.Prompt, input.Model)
	if err != nil {
		return nil, EnhancePromptOutput{}, err
	}
	return nil, EnhancePromptOutput{Prompts: prompts}, nil
}

func (a *app) handleBrandDNA(ctx context.Context, req *mcp.CallToolRequest, input BrandDNAInput) (*mcp.CallToolResult, branddna.DNA, error) {
	extract := branddna.ExtractRequest{
		Description: input.Description,
		VideoURLs:   input.VideoURLs,
	}
	if input.LogoData != "" {
		mimeType := input.LogoMIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		extract.LogoImage = &gemini.InlineImage{Data: input.LogoData, MIMEType: mimeType}
	}
	for _, ref := range input.ReferenceImages {
		extract.ReferenceImages = append(extract.ReferenceImages, gemini.InlineImage{Data: ref})
	}

	dna, err := a.extractor.Extract(ctx, extract)
	if err != nil {
		return nil, branddna.DNA{}, err
	}
	return nil, dna, nil
}

func (a *app) handleSEODiagnosis(ctx context.Context, req *mcp.CallToolRequest, input SEODiagnosisInput) (*mcp.CallToolResult, seo.Report, error) {
	if input.URL == "" {
		return nil, seo.Report{}, fmt.Errorf("url is required")
	}
	report, err := a.seo.Diagnosis(ctx, input.URL)
	if err != nil {
		return nil, seo.Report{}, err
	}
	return textResult("Content SEO health score for %s: %g\n\n%s", report.SiteURL, report.ContentSeoHealthScore, report.CoreInsight), *report, nil
}

func (a *app) handleUploadMedia(ctx context.Context, req *mcp.CallToolRequest, input UploadMediaInput) (*mcp.CallToolResult, api.UploadResult, error) {
	if input.Data == "" && input.URL == "" {
		return nil, api.UploadResult{}, fmt.Errorf("one of 'data' (base64) or 'url' is required")
	}
	if input.MIMEType == "" {
		return nil, api.UploadResult{}, fmt.Errorf("mime_type is required")
	}

	var data []byte
	var err error
	if input.Data != "" {
		payload := input.Data
		if _, rest, ok := strings.Cut(payload, ","); ok && strings.HasPrefix(payload, "data:") {
			payload = rest
		}
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, api.UploadResult{}, fmt.Errorf("failed to decode base64 data: %w", err)
		}
	} else {
		data, err = download(ctx, input.URL)
		if err != nil {
			return nil, api.UploadResult{}, err
		}
		a.logger.Info("downloaded media", "url", input.URL, "bytes", len(data))
	}

	prefix := input.Prefix
	if prefix == "" {
		prefix = "upload"
	}
	stored, err := a.storage.Store(ctx, data, input.MIMEType, prefix)
	if err != nil {
		return nil, api.UploadResult{}, fmt.Errorf("failed to store media: %w", err)
	}
	a.logger.Info("stored uploaded media", "object_key", stored.ObjectKey, "size", stored.Size)

	out := api.NewUploadResult(stored, a.storage.IsRemote(), time.Now())
	text := fmt.Sprintf("Media uploaded successfully.\nObject Key: %s", out.ObjectKey)
	if out.DownloadURL != "" {
		text += "\nDownload URL: " + out.DownloadURL
		if out.ExpiresAt != "" {
			text += "\nURL expires at: " + out.ExpiresAt
		}
	}
	return textResult("%s", text), out, nil
}

// storedImages reads objects back from storage as inline images. The MIME type
// comes from the key's extension, which Store always sets.
func (a *app) storedImages(ctx context.Context, keys []string) ([]gemini.InlineImage, error) {
	images := make([]gemini.InlineImage, 0, len(keys))
	for _, key := range keys {
		data, err := a.storage.Retrieve(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("object not found: %s (use an object_key returned by upload_media)", key)
			}
			return nil, fmt.Errorf("failed to retrieve %s: %w", key, err)
		}
		mimeType := storage.MIMEFromExtension(key)
		if !strings.HasPrefix(mimeType, "image/") {
			return nil, fmt.Errorf("object %s is not an image (%s)", key, mimeType)
		}
		images = append(images, gemini.InlineImage{
			Data:     base64.StdEncoding.EncodeToString(data),
			MIMEType: mimeType,
		})
	}
	return images, nil
}

func download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download from URL: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download from URL: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
