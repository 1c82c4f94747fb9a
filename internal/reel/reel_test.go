package reel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"gemini-studio/internal/branddna"
	"gemini-studio/internal/common"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/gemini/geminitest"
	"gemini-studio/internal/videoassets"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pngB64 = "iVBORw0KGgo="

func newTestService(fake *geminitest.Fake, profiles branddna.Store, tracker videoassets.Tracker) *Service {
	s := NewService(fake, common.DefaultModels(), profiles, tracker, testLogger)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func directorCall(args map[string]any) func(context.Context, gemini.FunctionRequest) (*genai.FunctionCall, error) {
	return func(ctx context.Context, req gemini.FunctionRequest) (*genai.FunctionCall, error) {
		return &genai.FunctionCall{Name: req.Declarations[0].Name, Args: args}, nil
	}
}

func TestCreativeDirectorModelMismatch(t *testing.T) {
	fake := geminitest.Texts("```json\n{\"mismatch\": true, \"suggestedModel\": \"veo_fast\", \"reasoning\": \"您想要视频\"}\n```")
	s := newTestService(fake, nil, nil)

	resp, err := s.CreativeDirector(context.Background(), DirectorRequest{UserPrompt: "drone shot over a city"})
	require.NoError(t, err)

	want := &DirectorResponse{
		Action:         ActionModelMismatch,
		Prompt:         "drone shot over a city",
		Reasoning:      "您想要视频",
		SuggestedModel: "veo_fast",
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("CreativeDirector mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, fake.TextCalls[0].Prompt, "Current Model Modality: IMAGE")
	assert.Empty(t, fake.FunctionCalls)
}

func TestCreativeDirectorImageEdit(t *testing.T) {
	fake := geminitest.Texts(`{"mismatch": false}`)
	fake.FunctionCallFunc = directorCall(map[string]any{
		"action":        "EDIT_IMAGE",
		"prompt":        "make the sky purple",
		"reasoning":     "好的",
		"targetImageId": "img-1",
	})
	s := newTestService(fake, nil, nil)

	resp, err := s.CreativeDirector(context.Background(), DirectorRequest{
		UserPrompt:      "purple sky",
		Assets:          map[string]AssetRef{"img-1": {Type: "image"}, "vid-1": {Type: "video"}},
		SelectedAssetID: "img-1",
		// The last asset is a video, so the image director must not see it.
		LastGeneratedAssetID: "vid-1",
		Messages: []Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "second"},
			{Role: "user", Content: "third"},
			{Role: "assistant", Content: map[string]any{"src": "x"}, Type: "image"},
			{Content: "fifth"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ActionEditAsset, resp.Action)
	assert.Equal(t, "img-1", resp.TargetAssetID)
	assert.Equal(t, "make the sky purple", resp.Prompt)

	require.Len(t, fake.FunctionCalls, 1)
	call := fake.FunctionCalls[0]
	assert.Equal(t, "gemini-2.5-pro", call.Model)
	assert.Equal(t, "creative_director_action", call.Declarations[0].Name)
	assert.Contains(t, call.Prompt, "Explicitly Selected Image ID: img-1")
	assert.Contains(t, call.Prompt, "Most Recently Generated Image ID: None")
	assert.NotContains(t, call.Prompt, "user: first")
	assert.Contains(t, call.Prompt, "assistant: second\nuser: third\nassistant: [image message]\nuser: fifth")
}

func TestCreativeDirectorVideoActions(t *testing.T) {
	tests := []struct {
		name   string
		args   map[string]any
		action string
		target string
	}{
		{name: "new", args: map[string]any{"action": "NEW_VIDEO", "prompt": "p", "reasoning": "r"}, action: ActionNewAsset},
		{name: "edit", args: map[string]any{"action": "EDIT_VIDEO", "prompt": "p", "reasoning": "r", "targetVideoId": "v1"}, action: ActionEditAsset, target: "v1"},
		{name: "answer", args: map[string]any{"action": "ANSWER_QUESTION", "prompt": "p", "reasoning": "r"}, action: ActionAnswerQuestion},
		{name: "missing action defaults to new", args: map[string]any{"prompt": "p"}, action: ActionNewAsset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &geminitest.Fake{FunctionCallFunc: directorCall(tt.args)}
			s := newTestService(fake, nil, nil)

			resp, err := s.CreativeDirector(context.Background(), DirectorRequest{
				UserPrompt:       "a cat",
				SelectedModel:    "veo_fast",
				HasUploadedFiles: true,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.action, resp.Action)
			assert.Equal(t, tt.target, resp.TargetAssetID)
			assert.Equal(t, "video_creative_director_action", fake.FunctionCalls[0].Declarations[0].Name)
			assert.Empty(t, fake.TextCalls)
		})
	}
}

func TestCreativeDirectorFallback(t *testing.T) {
	fake := geminitest.Texts("not json")
	fake.FunctionCallFunc = func(ctx context.Context, req gemini.FunctionRequest) (*genai.FunctionCall, error) {
		return nil, nil
	}
	s := newTestService(fake, nil, nil)

	resp, err := s.CreativeDirector(context.Background(), DirectorRequest{UserPrompt: "a cat"})
	require.NoError(t, err)
	assert.Equal(t, ActionNewAsset, resp.Action)
	assert.Equal(t, "a cat", resp.Prompt)
	assert.Equal(t, `好的，正在为您创作一张关于"a cat"的图片。`, resp.Reasoning)
}

func TestCreativeDirectorError(t *testing.T) {
	restricted := errors.New("rpc error: FailedPrecondition: User location is not supported")
	fake := &geminitest.Fake{FunctionCallFunc: func(ctx context.Context, req gemini.FunctionRequest) (*genai.FunctionCall, error) {
		return nil, restricted
	}}
	s := newTestService(fake, nil, nil)

	_, err := s.CreativeDirector(context.Background(), DirectorRequest{UserPrompt: "x", HasUploadedFiles: true})
	require.ErrorIs(t, err, restricted)
	assert.True(t, gemini.IsLocationRestricted(err))
}

func TestGenerateImage(t *testing.T) {
	fake := &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return &gemini.Media{Data: []byte("img"), MIMEType: "image/png"}, nil
	}}
	s := newTestService(fake, nil, nil)

	asset, err := s.Generate(context.Background(), "u1", GenerateRequest{
		Prompt: "a cup",
		Model:  "banana_pro",
		Images: []gemini.InlineImage{{Data: pngB64, MIMEType: "image/png"}},
	})
	require.NoError(t, err)

	want := &Asset{
		AssetID:         "reel-img-1700000000000",
		Type:            "image",
		Src:             "data:image/png;base64,aW1n",
		Prompt:          "a cup",
		Width:           512,
		Height:          896,
		Status:          "done",
		GenerationModel: "banana_pro",
	}
	if diff := cmp.Diff(want, asset); diff != "" {
		t.Errorf("Generate mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, fake.ImageCalls, 1)
	assert.Equal(t, "gemini-3-pro-image-preview", fake.ImageCalls[0].Model)
	assert.Equal(t, "9:16", fake.ImageCalls[0].AspectRatio)
	assert.Len(t, fake.ImageCalls[0].Images, 1)
}

func TestGenerateInjectsBrandDNA(t *testing.T) {
	profiles := branddna.NewMemoryStore()
	p, err := profiles.Create(context.Background(), "u1", branddna.Profile{Name: "Acme", Mood: "Calm"})
	require.NoError(t, err)

	fake := &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return &gemini.Media{Data: []byte("x"), MIMEType: "image/jpeg"}, nil
	}}
	s := newTestService(fake, profiles, nil)

	asset, err := s.Generate(context.Background(), "u1", GenerateRequest{Prompt: "a cup", BrandDNAProfileID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, "a cup", asset.Prompt)
	assert.Contains(t, fake.ImageCalls[0].Prompt, "[BRAND DNA ACTIVE: Acme]")
	assert.Equal(t, "gemini-2.5-flash-image", fake.ImageCalls[0].Model)

	// Someone else's profile, or one that no longer exists, is skipped.
	for _, id := range []string{p.ID, "deleted-profile"} {
		asset, err = s.Generate(context.Background(), "u2", GenerateRequest{Prompt: "a cup", BrandDNAProfileID: id})
		require.NoError(t, err)
		assert.Equal(t, "a cup", asset.Prompt)
	}
	require.Len(t, fake.ImageCalls, 3)
	assert.Equal(t, "a cup", fake.ImageCalls[1].Prompt)
	assert.Equal(t, "a cup", fake.ImageCalls[2].Prompt)
}

func TestGenerateRejectsBadImages(t *testing.T) {
	s := newTestService(&geminitest.Fake{}, nil, nil)
	_, err := s.Generate(context.Background(), "u1", GenerateRequest{
		Prompt: "x",
		Images: []gemini.InlineImage{{Data: "%%%"}},
	})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

type fakeTracker struct {
	mu        sync.Mutex
	fail      map[string]bool
	archived  []string
	statuses  []string
	discarded []string
}

func (f *fakeTracker) Available() bool { return true }

func (f *fakeTracker) Archive(ctx context.Context, data []byte, mimeType, prompt string) (*videoassets.Reference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[prompt] {
		return nil, errors.New("bucket unavailable")
	}
	f.archived = append(f.archived, prompt)
	return &videoassets.Reference{DocID: "doc-" + prompt, StoragePath: "veo_references/" + string(data), GCSURI: "gs://bucket/" + string(data)}, nil
}

func (f *fakeTracker) UpdateStatus(ctx context.Context, ref *videoassets.Reference, status, videoURI, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, ref.DocID+":"+status+":"+videoURI+errMsg)
	return nil
}

func (f *fakeTracker) Discard(ctx context.Context, ref *videoassets.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = append(f.discarded, ref.StoragePath)
	return nil
}

func TestGenerateVideoArchivesFrames(t *testing.T) {
	fake := &geminitest.Fake{VideoFunc: func(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoResult, error) {
		return &gemini.VideoResult{URI: "https://v/1", SignedURI: "https://v/1?key=k"}, nil
	}}
	tracker := &fakeTracker{}
	s := newTestService(fake, nil, tracker)

	first := "Zmlyc3Q=" // "first"
	last := "bGFzdA=="  // "last"
	extra := "ZXh0cmE=" // "extra"
	asset, err := s.Generate(context.Background(), "u1", GenerateRequest{
		Prompt:      "waves",
		Model:       "veo_fast",
		AspectRatio: "16:9",
		Images:      []gemini.InlineImage{{Data: first}, {Data: last}, {Data: extra}},
	})
	require.NoError(t, err)
	assert.Equal(t, "reel-vid-1700000000000", asset.AssetID)
	assert.Equal(t, "video", asset.Type)
	assert.Equal(t, "https://v/1?key=k", asset.Src)

	require.Len(t, fake.VideoCalls, 1)
	req := fake.VideoCalls[0]
	assert.Equal(t, "veo-3.1-generate-preview", req.Model)
	assert.Equal(t, "16:9", req.AspectRatio)
	assert.Equal(t, "gs://bucket/first", req.First.GCSURI)
	assert.Equal(t, "gs://bucket/last", req.Last.GCSURI)
	// Archived frames keep their bytes for backends that cannot read gs:// URIs.
	assert.Equal(t, []byte("first"), req.First.Data)
	assert.Equal(t, []byte("last"), req.Last.Data)
	assert.ElementsMatch(t, []string{"waves", "waves (Last Frame)"}, tracker.archived)
	// The tracking record never sees the API key.
	assert.Equal(t, []string{"doc-waves:completed:https://v/1"}, tracker.statuses)
	assert.Empty(t, tracker.discarded)
}

func TestGenerateVideoFallsBackToInlineFrames(t *testing.T) {
	videoErr := errors.New("video generation failed: quota")
	fake := &geminitest.Fake{VideoFunc: func(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoResult, error) {
		return nil, videoErr
	}}
	tracker := &fakeTracker{fail: map[string]bool{"waves (Last Frame)": true}}
	s := newTestService(fake, nil, tracker)

	_, err := s.Generate(context.Background(), "u1", GenerateRequest{
		Prompt: "waves",
		Model:  "veo_gen",
		Images: []gemini.InlineImage{{Data: "Zmlyc3Q="}, {Data: "bGFzdA==", MIMEType: "image/png"}},
	})
	require.ErrorIs(t, err, videoErr)

	req := fake.VideoCalls[0]
	assert.Equal(t, "9:16", req.AspectRatio)
	assert.Equal(t, "gs://bucket/first", req.First.GCSURI)
	assert.Equal(t, []byte("first"), req.First.Data)
	assert.Empty(t, req.Last.GCSURI)
	assert.Equal(t, []byte("last"), req.Last.Data)
	assert.Equal(t, "image/png", req.Last.MIMEType)
	assert.Equal(t, []string{"doc-waves:failed:video generation failed: quota"}, tracker.statuses)
	assert.Equal(t, []string{"veo_references/first"}, tracker.discarded)
}

func TestGenerateVideoWithoutTracker(t *testing.T) {
	fake := &geminitest.Fake{VideoFunc: func(ctx context.Context, req gemini.VideoRequest) (*gemini.VideoResult, error) {
		return &gemini.VideoResult{SignedURI: "https://v"}, nil
	}}
	s := newTestService(fake, nil, nil)

	_, err := s.Generate(context.Background(), "u1", GenerateRequest{Prompt: "text only", Model: "veo_fast"})
	require.NoError(t, err)
	assert.Nil(t, fake.VideoCalls[0].First)
	assert.Nil(t, fake.VideoCalls[0].Last)
}

func TestEnhancePrompt(t *testing.T) {
	fake := geminitest.Texts(`Here you go: [{"title":"Neon","description":"d","tags":["a","b"],"fullPrompt":"neon city"}]`)
	s := newTestService(fake, nil, nil)

	cards, err := s.EnhancePrompt(context.Background(), "city", "veo_fast")
	require.NoError(t, err)
	assert.Equal(t, []EnhancedPrompt{{Title: "Neon", Description: "d", Tags: []string{"a", "b"}, FullPrompt: "neon city"}}, cards)
	assert.True(t, strings.HasPrefix(fake.TextCalls[0].SystemInstruction, "You are a Senior VEO 3.1 Prompt Specialist"))
	assert.Contains(t, fake.TextCalls[0].Prompt, `The user's idea is: "city"`)

	fallback, err := newTestService(geminitest.Texts(`{"title":"not a list"}`), nil, nil).EnhancePrompt(context.Background(), "city", "banana")
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, "Original Prompt", fallback[0].Title)
	assert.Equal(t, "city", fallback[0].FullPrompt)
	assert.Equal(t, []string{"user-provided"}, fallback[0].Tags)
}

func TestDesignPlan(t *testing.T) {
	fake := geminitest.Texts("research notes", `[{"title":"A","description":"d","prompt":"p","referenceImagePrompt":"r"}]`)
	s := newTestService(fake, nil, nil)

	plans, err := s.DesignPlan(context.Background(), "coffee", "veo_fast")
	require.NoError(t, err)
	assert.Equal(t, []DesignPlan{{Title: "A", Description: "d", Prompt: "p", ReferenceImagePrompt: "r"}}, plans)

	require.Equal(t, 2, fake.TextCallCount())
	assert.True(t, fake.TextCalls[0].GoogleSearch)
	assert.Contains(t, fake.TextCalls[1].Prompt, "research notes")
	assert.Contains(t, fake.TextCalls[1].Prompt, "Act as a VEO 3.1 Creative Director.")

	empty, err := newTestService(geminitest.Texts("notes", "no json here"), nil, nil).DesignPlan(context.Background(), "coffee", "banana")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSummarizePrompt(t *testing.T) {
	s := newTestService(geminitest.Texts("  Black Chronograph Watch \n"), nil, nil)
	summary, err := s.SummarizePrompt(context.Background(), "a watch")
	require.NoError(t, err)
	assert.Equal(t, "Black Chronograph Watch", summary)

	long := strings.Repeat("长", 50)
	summary, err = newTestService(geminitest.Texts(""), nil, nil).SummarizePrompt(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("长", 40)+"...", summary)
}

func TestImageTools(t *testing.T) {
	fake := &geminitest.Fake{
		ImagenFunc: func(ctx context.Context, prompt, aspectRatio string) (*gemini.Media, error) {
			return &gemini.Media{Data: []byte(aspectRatio), MIMEType: "image/png"}, nil
		},
		ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
			return &gemini.Media{Data: []byte("cut"), MIMEType: "image/png"}, nil
		},
	}
	s := newTestService(fake, nil, nil)
	ctx := context.Background()

	up, err := s.Upscale(ctx, UpscaleRequest{ImageInput: ImageInput{Base64Data: pngB64}, Factor: 2, Prompt: "cup"})
	require.NoError(t, err)
	assert.Equal(t, "OToxNg==", up) // "9:16"

	ref, err := s.ReferenceImage(ctx, "mood board")
	require.NoError(t, err)
	assert.Equal(t, "MTY6OQ==", ref) // "16:9"
	assert.Equal(t, []string{"cup", "mood board"}, fake.ImagenCalls)

	cut, err := s.RemoveBackground(ctx, ImageInput{Base64Data: pngB64, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Y3V0", cut)
	assert.Equal(t, "gemini-2.5-flash-image", fake.ImageCalls[0].Model)
	assert.Contains(t, fake.ImageCalls[0].Prompt, "Zero-Shot Image Segmentation")

	_, err = s.RemoveBackground(ctx, ImageInput{Base64Data: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestRenderImage(t *testing.T) {
	fake := &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return &gemini.Media{Data: []byte("img"), MIMEType: "image/png"}, nil
	}}
	s := newTestService(fake, nil, nil)

	img, err := s.RenderImage(context.Background(), ImageRequest{
		Prompt: "a lamp",
		Images: []gemini.InlineImage{{Data: pngB64, MIMEType: "image/png"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "aW1n", img)
	require.Len(t, fake.ImageCalls, 1)
	assert.Equal(t, "gemini-2.5-flash-image", fake.ImageCalls[0].Model)
	assert.Equal(t, "1:1", fake.ImageCalls[0].AspectRatio)
	assert.Equal(t, "a lamp", fake.ImageCalls[0].Prompt)
	assert.Len(t, fake.ImageCalls[0].Images, 1)

	_, err = s.RenderImage(context.Background(), ImageRequest{Prompt: "a lamp", ModelLevel: "banana_pro", AspectRatio: "4:3"})
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-image-preview", fake.ImageCalls[1].Model)
	assert.Equal(t, "4:3", fake.ImageCalls[1].AspectRatio)

	_, err = s.RenderImage(context.Background(), ImageRequest{Prompt: "x", Images: []gemini.InlineImage{{Data: "%%%"}}})
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestInspiration(t *testing.T) {
	fake := &geminitest.Fake{ImageFunc: func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		if req.Model == "gemini-2.5-flash-image" {
			return nil, errors.New("overloaded")
		}
		return &gemini.Media{Data: []byte("pro"), MIMEType: "image/png"}, nil
	}}
	s := newTestService(fake, nil, nil)

	img, err := s.Inspiration(context.Background(), "创建AI图片 misty forest ")
	require.NoError(t, err)
	assert.Equal(t, "cHJv", img)

	require.Len(t, fake.ImageCalls, 2)
	for _, call := range fake.ImageCalls {
		assert.Equal(t, "misty forest", call.Prompt)
		assert.Equal(t, "1:1", call.AspectRatio)
		assert.Empty(t, call.Images)
	}
	assert.Equal(t, "gemini-3-pro-image-preview", fake.ImageCalls[1].Model)

	fake.ImageFunc = func(ctx context.Context, req gemini.ImageRequest) (*gemini.Media, error) {
		return nil, errors.New("down")
	}
	_, err = s.Inspiration(context.Background(), "forest")
	assert.ErrorContains(t, err, "inspiration: down")
}
