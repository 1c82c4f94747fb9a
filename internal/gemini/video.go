package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"google.golang.org/genai"
)

const defaultVideoDuration int32 = 8

// Video starts a Veo operation, waits for it and returns the generated video URI.
func (c *Client) Video(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	model := c.model(req.Model, c.models.Veo)

	config := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		DurationSeconds: genai.Ptr(defaultVideoDuration),
		AspectRatio:     req.AspectRatio,
		NegativePrompt:  req.NegativePrompt,
	}
	if req.Last != nil {
		config.LastFrame = frameImage(req.Last, c.vertex)
	}

	c.logger.Info("starting video generation",
		"model", model, "aspect_ratio", req.AspectRatio,
		"first_frame", req.First != nil, "last_frame", req.Last != nil)

	operation, err := c.client.Models.GenerateVideos(ctx, model, req.Prompt, frameImage(req.First, c.vertex), config)
	if err != nil {
		return nil, fmt.Errorf("error starting video generation: %w", err)
	}
	c.logger.Info("video generation started", "operation", operation.Name)

	operation, err = c.poller.Wait(ctx, operation, func(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
		return c.client.Operations.GetVideosOperation(ctx, op, nil)
	})
	if err != nil {
		return nil, err
	}

	video, err := finishedVideo(operation)
	if err != nil {
		return nil, err
	}

	return &VideoResult{
		OperationName: operation.Name,
		URI:           video.URI,
		SignedURI:     SignVideoURI(video.URI, c.apiKey),
	}, nil
}

// DownloadVideo fetches the bytes of a generated video through the Files API.
func (c *Client) DownloadVideo(ctx context.Context, uri string) ([]byte, error) {
	data, err := c.client.Files.Download(ctx, genai.NewDownloadURIFromVideo(&genai.Video{URI: uri}), nil)
	if err != nil {
		return nil, fmt.Errorf("error downloading video: %w", err)
	}
	return data, nil
}

// frameImage builds the genai image for a keyframe. The Gemini Developer API
// rejects gcsUri, so a stored copy is only referenced on Vertex AI.
func frameImage(f *Frame, vertex bool) *genai.Image {
	if f == nil {
		return nil
	}
	if vertex && f.GCSURI != "" {
		return &genai.Image{GCSURI: f.GCSURI, MIMEType: f.MIMEType}
	}
	return &genai.Image{ImageBytes: f.Data, MIMEType: f.MIMEType}
}

func finishedVideo(operation *genai.GenerateVideosOperation) (*genai.Video, error) {
	if len(operation.Error) > 0 {
		errJSON, _ := json.Marshal(operation.Error)
		return nil, fmt.Errorf("video generation failed: %s", errJSON)
	}
	if operation.Response == nil {
		return nil, ErrNoVideo
	}
	if operation.Response.RAIMediaFilteredCount > 0 {
		reasons := "unknown"
		if len(operation.Response.RAIMediaFilteredReasons) > 0 {
			reasons = strings.Join(operation.Response.RAIMediaFilteredReasons, ", ")
		}
		return nil, fmt.Errorf("video generation failed: blocked by safety filters: %s", reasons)
	}
	if len(operation.Response.GeneratedVideos) == 0 ||
		operation.Response.GeneratedVideos[0].Video == nil ||
		operation.Response.GeneratedVideos[0].Video.URI == "" {
		return nil, ErrNoVideo
	}
	return operation.Response.GeneratedVideos[0].Video, nil
}

// SignVideoURI attaches the API key to a generated video URI so the browser can
// download it directly. gs:// URIs and empty keys are left untouched.
func SignVideoURI(uri, apiKey string) string {
	if uri == "" || apiKey == "" || strings.HasPrefix(uri, "gs://") {
		return uri
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		sep := "?"
		if strings.Contains(uri, "?") {
			sep = "&"
		}
		return uri + sep + "key=" + apiKey
	}
	query := parsed.Query()
	query.Set("key", apiKey)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// OperationGetter refreshes a long-running video operation.
type OperationGetter func(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)

// Poller waits for a video operation to finish. Transient errors are retried
// with exponential backoff; a successful poll resets the retry budget.
type Poller struct {
	Interval   time.Duration
	MaxRetries int
	MaxBackoff time.Duration
	MaxWait    time.Duration
	Logger     *slog.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Wait polls op until it is done, the context ends, MaxWait elapses or a
// non-retriable error occurs.
func (p *Poller) Wait(ctx context.Context, op *genai.GenerateVideosOperation, get OperationGetter) (*genai.GenerateVideosOperation, error) {
	if p.MaxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.MaxWait)
		defer cancel()
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxBackoff := p.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	retries := 0
	consecutiveErrors := 0
	for !op.Done {
		if err := sleep(ctx, p.Interval); err != nil {
			return nil, fmt.Errorf("video generation did not finish: %w", err)
		}

		next, err := get(ctx, op)
		if err != nil {
			consecutiveErrors++
			retries++
			if !IsRetriable(err) || retries >= p.MaxRetries {
				logger.Error("video polling failed",
					"operation", op.Name, "retries", retries, "consecutive_errors", consecutiveErrors, "error", err)
				return nil, fmt.Errorf("polling video operation %s: %w", op.Name, err)
			}

			backoff := time.Duration(math.Pow(2, float64(retries))) * time.Second
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			logger.Warn("transient error while polling video operation, retrying",
				"operation", op.Name, "retry", retries, "max_retries", p.MaxRetries, "backoff", backoff, "error", err)
			if err := sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("video generation did not finish: %w", err)
			}
			continue
		}

		retries = 0
		consecutiveErrors = 0
		op = next
		logger.Debug("polled video operation", "operation", op.Name, "done", op.Done)
	}
	return op, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
