package api

import (
	"net/http"

	"gemini-studio/internal/gemini"
	"gemini-studio/internal/reel"
)

func (s *Server) handleCreativeDirector(w http.ResponseWriter, r *http.Request) {
	var req reel.DirectorRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.UserPrompt == "" {
		missingField(w, "userPrompt")
		return
	}

	resp, err := s.reel.CreativeDirector(r.Context(), req)
	if err != nil {
		if gemini.IsLocationRestricted(err) {
			s.logger.Warn("creative director blocked by location restriction", "error", err)
			writeJSON(w, http.StatusOK, reel.DirectorRestriction())
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req reel.GenerateRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	asset, err := s.reel.Generate(r.Context(), currentUID(r), req)
	if err != nil {
		if gemini.IsLocationRestricted(err) {
			s.logger.Warn("generation blocked by location restriction", "model", req.Model, "error", err)
			writeJSON(w, http.StatusOK, reel.GenerateRestriction())
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// handleEnhancePrompt serves the prompt cards. defaultModel decides between
// image and video oriented prompts when the body names no model.
func (s *Server) handleEnhancePrompt(defaultModel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req promptRequest
		if !s.readBody(w, r, &req) {
			return
		}
		if req.Prompt == "" {
			missingField(w, "prompt")
			return
		}

		cards, err := s.reel.EnhancePrompt(r.Context(), req.Prompt, orDefault(req.Model, defaultModel))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

func (s *Server) handleDesignPlan(defaultModel string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Topic string `json:"topic"`
			Model string `json:"model"`
		}
		if !s.readBody(w, r, &req) {
			return
		}
		if req.Topic == "" {
			missingField(w, "topic")
			return
		}

		plans, err := s.reel.DesignPlan(r.Context(), req.Topic, orDefault(req.Model, defaultModel))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, plans)
	}
}

func (s *Server) handleUpscale(w http.ResponseWriter, r *http.Request) {
	var req reel.UpscaleRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Base64Data == "" || req.Prompt == "" {
		missingFields(w)
		return
	}

	img, err := s.reel.Upscale(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64Image": img})
}

func (s *Server) handleRemoveBackground(w http.ResponseWriter, r *http.Request) {
	var req reel.ImageInput
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Base64Data == "" {
		missingField(w, "base64Data")
		return
	}

	img, err := s.reel.RemoveBackground(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64Image": img})
}

func (s *Server) handleReferenceImage(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	img, err := s.reel.ReferenceImage(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64Image": img})
}

func (s *Server) handleSummarizePrompt(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	summary, err := s.reel.SummarizePrompt(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleImageGenerate(w http.ResponseWriter, r *http.Request) {
	var req reel.ImageRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	img, err := s.reel.RenderImage(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64Image": img})
}

func (s *Server) handleInspiration(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	img, err := s.reel.Inspiration(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base64Image": img})
}

// handleVideoGenerate is the standalone video studio call. It always renders
// with Veo, defaults to landscape and answers with the bare video URI.
func (s *Server) handleVideoGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt      string               `json:"prompt"`
		Images      []gemini.InlineImage `json:"images"`
		AspectRatio string               `json:"aspectRatio"`
		ModelName   string               `json:"modelName"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	model := req.ModelName
	if !gemini.IsVideoModel(model) {
		model = "veo_fast"
	}
	asset, err := s.reel.Generate(r.Context(), currentUID(r), reel.GenerateRequest{
		Prompt:      req.Prompt,
		Model:       model,
		Images:      req.Images,
		AspectRatio: orDefault(req.AspectRatio, "16:9"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"videoUri": asset.Src})
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
