package reel

import (
	"context"
	"fmt"

	"gemini-studio/internal/branddna"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/videoassets"

	"golang.org/x/sync/errgroup"
)

type GenerateRequest struct {
	Prompt            string               `json:"prompt"`
	Model             string               `json:"model"`
	Images            []gemini.InlineImage `json:"images"`
	AspectRatio       string               `json:"aspectRatio"`
	SourceAssetID     string               `json:"sourceAssetId,omitempty"`
	BrandDNAProfileID string               `json:"brandDnaProfileId,omitempty"`
}

// Asset is a generated reel asset as the frontend stores it.
type Asset struct {
	AssetID         string `json:"assetId"`
	Type            string `json:"type"`
	Src             string `json:"src"`
	Prompt          string `json:"prompt"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Status          string `json:"status"`
	GenerationModel string `json:"generationModel"`
}

// Generate produces an image or a video depending on the selected model. A
// named Brand DNA profile that is missing or not owned by uid is skipped and the
// prompt is used as is.
func (s *Service) Generate(ctx context.Context, uid string, req GenerateRequest) (*Asset, error) {
	req.Model = orDefault(req.Model, "banana")
	req.AspectRatio = orDefault(req.AspectRatio, "9:16")
	isVideo := gemini.IsVideoModel(req.Model)

	s.logger.Info("generate asset request",
		"uid", uid, "model", req.Model, "aspect_ratio", req.AspectRatio,
		"images", len(req.Images), "source_asset", req.SourceAssetID)

	images, err := decodeImages(req.Images)
	if err != nil {
		return nil, err
	}

	prompt := req.Prompt
	if req.BrandDNAProfileID != "" && s.profiles != nil {
		profile, err := s.profiles.Get(ctx, uid, req.BrandDNAProfileID)
		if err != nil {
			s.logger.Warn("brand dna profile unavailable, generating without it",
				"uid", uid, "profile", req.BrandDNAProfileID, "error", err)
		} else {
			prompt = branddna.InjectPrompt(prompt, profile, isVideo)
			s.logger.Info("brand dna injected", "profile", profile.ID, "name", profile.Name)
		}
	}

	if isVideo {
		return s.generateVideo(ctx, req, prompt, images)
	}
	return s.generateImage(ctx, req, prompt, images)
}

func (s *Service) generateImage(ctx context.Context, req GenerateRequest, prompt string, images []gemini.Media) (*Asset, error) {
	media, err := s.gen.Image(ctx, gemini.ImageRequest{
		Model:       gemini.ResolveImageModel(s.models, req.Model),
		Prompt:      prompt,
		Images:      images,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		return nil, err
	}
	return &Asset{
		AssetID:         fmt.Sprintf("reel-img-%d", s.now().UnixMilli()),
		Type:            "image",
		Src:             media.DataURL(),
		Prompt:          req.Prompt,
		Width:           assetWidth,
		Height:          assetHeight,
		Status:          "done",
		GenerationModel: req.Model,
	}, nil
}

func (s *Service) generateVideo(ctx context.Context, req GenerateRequest, prompt string, images []gemini.Media) (*Asset, error) {
	videoReq := gemini.VideoRequest{
		Model:       s.models.Veo,
		Prompt:      prompt,
		AspectRatio: req.AspectRatio,
	}

	var refs []*videoassets.Reference
	if len(images) > 0 {
		var frames []*gemini.Frame
		frames, refs = s.prepareFrames(ctx, prompt, images[:min(len(images), 2)])
		videoReq.First = frames[0]
		if len(frames) > 1 {
			videoReq.Last = frames[1]
		}
	}
	var first *videoassets.Reference
	if len(refs) > 0 {
		first = refs[0]
	}

	result, err := s.gen.Video(ctx, videoReq)
	if err != nil {
		s.updateStatus(ctx, first, videoassets.StatusFailed, "", err.Error())
		s.discard(ctx, refs)
		return nil, err
	}
	// The tracking record keeps the unsigned URI; only the response carries the key.
	s.updateStatus(ctx, first, videoassets.StatusCompleted, result.URI, "")

	return &Asset{
		AssetID:         fmt.Sprintf("reel-vid-%d", s.now().UnixMilli()),
		Type:            "video",
		Src:             result.SignedURI,
		Prompt:          req.Prompt,
		Width:           assetWidth,
		Height:          assetHeight,
		Status:          "done",
		GenerationModel: req.Model,
	}, nil
}

// prepareFrames archives the keyframes concurrently. Every frame keeps its bytes
// so the Gemini Developer API can take it inline; an archived frame also gets
// the gs:// URI that Vertex AI reads instead.
func (s *Service) prepareFrames(ctx context.Context, prompt string, images []gemini.Media) ([]*gemini.Frame, []*videoassets.Reference) {
	frames := make([]*gemini.Frame, len(images))
	refs := make([]*videoassets.Reference, len(images))
	for i, img := range images {
		frames[i] = &gemini.Frame{Data: img.Data, MIMEType: img.MIMEType}
	}
	if !s.tracker.Available() {
		return frames, refs
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		framePrompt := prompt
		if i == 1 {
			framePrompt = prompt + " (Last Frame)"
		}
		g.Go(func() error {
			ref, err := s.tracker.Archive(gctx, img.Data, img.MIMEType, framePrompt)
			if err != nil {
				s.logger.Warn("failed to archive keyframe", "frame", i, "error", err)
				return nil
			}
			refs[i] = ref
			frames[i].GCSURI = ref.GCSURI
			return nil
		})
	}
	_ = g.Wait()
	return frames, refs
}

func (s *Service) updateStatus(ctx context.Context, ref *videoassets.Reference, status, videoURI, errMsg string) {
	if ref == nil {
		return
	}
	if err := s.tracker.UpdateStatus(ctx, ref, status, videoURI, errMsg); err != nil {
		s.logger.Warn("failed to update veo asset status", "doc", ref.DocID, "status", status, "error", err)
	}
}

// discard removes the stored copies of keyframes whose generation failed.
func (s *Service) discard(ctx context.Context, refs []*videoassets.Reference) {
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if err := s.tracker.Discard(ctx, ref); err != nil {
			s.logger.Warn("failed to discard keyframe", "path", ref.StoragePath, "error", err)
		}
	}
}
