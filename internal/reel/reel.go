// Package reel implements the reel studio flows: intent routing, image and
// video generation, and the prompt helper tools around them.
package reel

import (
	"fmt"
	"log/slog"
	"time"

	"gemini-studio/internal/branddna"
	"gemini-studio/internal/common"
	"gemini-studio/internal/gemini"
	"gemini-studio/internal/videoassets"
)

// ErrInvalidImage marks request images that could not be decoded.
var ErrInvalidImage = gemini.ErrInvalidImage

// Reel assets are rendered in a fixed 9:16 frame.
const (
	assetWidth  = 512
	assetHeight = 896
)

// Service runs reel requests against a Generator.
type Service struct {
	gen      gemini.Generator
	models   common.Models
	profiles branddna.Store
	tracker  videoassets.Tracker
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the reel flows. A nil tracker disables frame archiving and a
// nil profile store disables Brand DNA injection.
func NewService(gen gemini.Generator, models common.Models, profiles branddna.Store, tracker videoassets.Tracker, logger *slog.Logger) *Service {
	if tracker == nil {
		tracker = videoassets.NopTracker{}
	}
	return &Service{
		gen:      gen,
		models:   models,
		profiles: profiles,
		tracker:  tracker,
		logger:   logger,
		now:      time.Now,
	}
}

// RestrictionNotice is returned with status 200 when the API refuses a call
// because of the caller's region, so the frontend can show it as a chat reply.
type RestrictionNotice struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action"`
	Prompt    string `json:"prompt"`
	Reasoning string `json:"reasoning"`
}

// DirectorRestriction is the notice for the creative director.
func DirectorRestriction() RestrictionNotice {
	return RestrictionNotice{
		Error:     "API location restriction",
		Message:   "Your location is not supported for this API. Veo video generation may not be available in your region.",
		Action:    ActionAnswerQuestion,
		Prompt:    "抱歉，由于 API 的地理位置限制，视频生成功能在您所在的地区暂不可用。请稍后再试或联系支持。",
		Reasoning: "检测到地理位置限制",
	}
}

// GenerateRestriction is the notice for asset generation.
func GenerateRestriction() RestrictionNotice {
	return RestrictionNotice{
		Error:     "API location restriction",
		Message:   "Your location is not supported for this API.",
		Action:    ActionAnswerQuestion,
		Prompt:    "抱歉，由于 API 的地理位置限制，生成功能在您所在的地区暂不可用。",
		Reasoning: "检测到地理位置限制",
	}
}

func decodeImages(images []gemini.InlineImage) ([]gemini.Media, error) {
	out := make([]gemini.Media, 0, len(images))
	for i, img := range images {
		m, err := img.Decode()
		if err != nil {
			return nil, fmt.Errorf("images[%d]: %w", i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
