// Package gemini wraps the genai SDK behind the small set of calls the studio
// handlers need: text, function calling, native image output, Imagen and Veo.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gemini-studio/internal/common"

	"google.golang.org/genai"
)

// Generator is the model surface used by the domain services.
type Generator interface {
	Text(ctx context.Context, req TextRequest) (string, error)
	FunctionCall(ctx context.Context, req FunctionRequest) (*genai.FunctionCall, error)
	Image(ctx context.Context, req ImageRequest) (*Media, error)
	Imagen(ctx context.Context, prompt, aspectRatio string) (*Media, error)
	Video(ctx context.Context, req VideoRequest) (*VideoResult, error)
}

// Media is a blob of generated or uploaded content.
type Media struct {
	Data     []byte
	MIMEType string
}

type TextRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Images            []Media
	// GoogleSearch attaches the search grounding tool.
	GoogleSearch bool
	// JSON requests an application/json response.
	JSON        bool
	Temperature *float32
}

type FunctionRequest struct {
	Model             string
	Prompt            string
	SystemInstruction string
	Declarations      []*genai.FunctionDeclaration
}

type ImageRequest struct {
	Model       string
	Prompt      string
	Images      []Media
	AspectRatio string
}

// Frame is a video keyframe, given either inline or as a gs:// URI.
// Frame is a keyframe for Veo. Data is always sent on the Gemini Developer API;
// GCSURI is only honoured by Vertex AI.
type Frame struct {
	Data     []byte
	MIMEType string
	GCSURI   string
}

type VideoRequest struct {
	Model          string
	Prompt         string
	AspectRatio    string
	NegativePrompt string
	First          *Frame
	Last           *Frame
}

type VideoResult struct {
	OperationName string
	URI           string
	// SignedURI is URI with the API key attached so a browser can fetch it.
	SignedURI string
}

// Client implements Generator on top of *genai.Client.
type Client struct {
	client *genai.Client
	models common.Models
	apiKey string
	vertex bool
	poller *Poller
	logger *slog.Logger
}

// NewClient creates the genai client. With an API key the Gemini Developer API is
// used, otherwise Vertex AI with the configured project and location.
func NewClient(ctx context.Context, config *common.Config, logger *slog.Logger) (*Client, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.APIKey == "" {
		clientConfig = &genai.ClientConfig{
			Project:  config.ProjectID,
			Location: config.Location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		models: config.Models,
		apiKey: config.APIKey,
		vertex: clientConfig.Backend == genai.BackendVertexAI,
		poller: &Poller{
			Interval:   config.VideoPollInterval,
			MaxRetries: config.VideoMaxPollRetries,
			MaxWait:    config.VideoMaxWait,
			Logger:     logger,
		},
		logger: logger,
	}, nil
}

// Models returns the model catalog the client was configured with.
func (c *Client) Models() common.Models {
	return c.models
}

// ResolveImageModel maps the frontend model id to a native image model.
func ResolveImageModel(models common.Models, name string) string {
	if name == "banana_pro" {
		return models.ImagePro
	}
	return models.Image
}

// IsVideoModel reports whether the frontend model id selects Veo.
func IsVideoModel(name string) bool {
	return strings.Contains(strings.ToLower(name), "veo")
}

func (c *Client) model(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func userContent(prompt string, images []Media) []*genai.Content {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}
