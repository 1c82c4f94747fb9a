package branddna

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gemini-studio/internal/gemini"
	"gemini-studio/internal/gemini/geminitest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const pngB64 = "iVBORw0KGgo="

func TestExtractParsesModelOutput(t *testing.T) {
	fake := geminitest.Texts("```json\n" + `{"visualStyle":"Matte, soft light","colorPalette":"Purple #6366F1","mood":"Serene","negativeConstraint":"No neon","motionStyle":"Slow pan"}` + "\n```")
	ex := NewExtractor(fake, "gemini-2.5-flash", testLogger)

	dna, err := ex.Extract(context.Background(), ExtractRequest{
		LogoImage:       &gemini.InlineImage{Data: pngB64, MIMEType: "image/png"},
		ReferenceImages: []gemini.InlineImage{{Data: pngB64, MIMEType: "image/png"}, {Data: pngB64}},
		Description:     "calm wellness brand",
	})
	require.NoError(t, err)

	want := DNA{
		VisualStyle:        "Matte, soft light",
		ColorPalette:       "Purple #6366F1",
		Mood:               "Serene",
		NegativeConstraint: "No neon",
		MotionStyle:        "Slow pan",
	}
	if diff := cmp.Diff(want, dna); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, fake.TextCalls, 1)
	call := fake.TextCalls[0]
	assert.Len(t, call.Images, 3)
	assert.Equal(t, "image/png", call.Images[0].MIMEType)
	assert.Equal(t, "image/jpeg", call.Images[2].MIMEType)
	assert.False(t, call.GoogleSearch)
	assert.Contains(t, call.Prompt, "Asset 1 is the BRAND LOGO")
	assert.Contains(t, call.Prompt, "The remaining 2 images are STYLE REFERENCES")
	assert.Contains(t, call.Prompt, `brand description: "calm wellness brand"`)
	assert.Contains(t, call.Prompt, "No video references provided.")
}

func TestExtractUsesSearchForVideos(t *testing.T) {
	fake := geminitest.Texts(`{"visualStyle":"v"}`)
	ex := NewExtractor(fake, "", testLogger)

	_, err := ex.Extract(context.Background(), ExtractRequest{
		ReferenceImages: []gemini.InlineImage{{Data: pngB64}},
		VideoURLs:       []string{"https://youtu.be/a", "https://youtu.be/b"},
	})
	require.NoError(t, err)
	require.Len(t, fake.TextCalls, 1)
	assert.True(t, fake.TextCalls[0].GoogleSearch)
	assert.Contains(t, fake.TextCalls[0].Prompt, "https://youtu.be/a, https://youtu.be/b")
	assert.Contains(t, fake.TextCalls[0].Prompt, "No Logo provided.")
}

func TestExtractFallbacks(t *testing.T) {
	ex := NewExtractor(geminitest.Texts("I cannot help with that."), "", testLogger)
	dna, err := ex.Extract(context.Background(), ExtractRequest{ReferenceImages: []gemini.InlineImage{{Data: pngB64}}})
	require.NoError(t, err)
	assert.Equal(t, FallbackDNA, dna)

	failing := &geminitest.Fake{TextFunc: func(ctx context.Context, req gemini.TextRequest) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	dna, err = NewExtractor(failing, "", testLogger).Extract(context.Background(), ExtractRequest{LogoImage: &gemini.InlineImage{Data: pngB64}})
	require.NoError(t, err)
	assert.Equal(t, FallbackDNA, dna)
}

func TestExtractValidation(t *testing.T) {
	ex := NewExtractor(&geminitest.Fake{}, "", testLogger)

	_, err := ex.Extract(context.Background(), ExtractRequest{Description: "no images"})
	assert.ErrorIs(t, err, ErrNoImages)

	_, err = ex.Extract(context.Background(), ExtractRequest{LogoImage: &gemini.InlineImage{Data: "%%%"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logoImage")
}

func TestInjectPrompt(t *testing.T) {
	p := &Profile{
		Name:               "Acme",
		VisualStyle:        "Minimal",
		ColorPalette:       "Blue",
		Mood:               "Calm",
		NegativeConstraint: "No clutter",
	}

	image := InjectPrompt("a cup of tea", p, false)
	assert.True(t, strings.HasPrefix(image, "a cup of tea\n\n"))
	assert.Contains(t, image, "[BRAND DNA ACTIVE: Acme]")
	assert.Contains(t, image, "- Negative Constraints: No clutter")
	assert.NotContains(t, image, "Motion Style")

	video := InjectPrompt("a cup of tea", p, true)
	assert.Contains(t, video, "Strictly adhere to these visual and motion constraints:")
	assert.Contains(t, video, "- Motion Style: Stable cinematic movement")
	assert.Contains(t, video, "- Negative Constraints (AVOID): No clutter")

	assert.Equal(t, "plain", InjectPrompt("plain", nil, true))
	assert.Contains(t, InjectPrompt("x", &Profile{}, false), "[BRAND DNA ACTIVE: Brand DNA]")
}

func TestStyleReference(t *testing.T) {
	assert.Equal(t, "", StyleReference(nil))
	assert.Equal(t, "https://ref", StyleReference(&Profile{StyleReferenceURL: "https://ref"}))
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := store.Create(ctx, "u1", Profile{Name: "First", IsActive: true})
	require.NoError(t, err)
	second, err := store.Create(ctx, "u1", Profile{Name: "Second", IsActive: true})
	require.NoError(t, err)

	_, err = store.Create(ctx, "u1", Profile{Name: "Third"})
	assert.ErrorIs(t, err, ErrLimitReached)

	_, err = store.Create(ctx, "u1", Profile{})
	assert.ErrorIs(t, err, ErrMissingName)

	list, err := store.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Name)
	assert.True(t, list[0].IsActive)
	assert.False(t, list[1].IsActive)

	_, err = store.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	activated, err := store.SetActive(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)
	got, err := store.Get(ctx, "u1", second.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	mood := "Bold"
	updated, err := store.Update(ctx, "u1", first.ID, ProfileUpdate{Mood: &mood})
	require.NoError(t, err)
	assert.Equal(t, "Bold", updated.Mood)
	assert.Equal(t, "First", updated.Name)

	assert.ErrorIs(t, store.Delete(ctx, "u2", first.ID), ErrNotFound)
	require.NoError(t, store.Delete(ctx, "u1", first.ID))
	_, err = store.Create(ctx, "u1", Profile{Name: "Third"})
	assert.NoError(t, err)
}

func TestProfileUpdateFields(t *testing.T) {
	name, style := "N", "S"
	u := ProfileUpdate{Name: &name, VisualStyle: &style}
	assert.Equal(t, map[string]string{"name": "N", "visualStyle": "S"}, u.fields())
}
