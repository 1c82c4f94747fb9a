package api

import (
	"net/http"

	"gemini-studio/internal/seo"
)

// The SEO routes mirror the frontend payloads. Object fields are pointers so
// an absent field can be told apart from an empty one.

func (s *Server) handleAnalyzeIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		missingField(w, "prompt")
		return
	}

	intent, err := s.seo.AnalyzeIntent(r.Context(), req.Prompt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleDiagnosis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		missingField(w, "url")
		return
	}

	report, err := s.seo.Diagnosis(r.Context(), req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL              string            `json:"url"`
		Profile          *seo.BrandProfile `json:"profile"`
		UserInstructions string            `json:"userInstructions"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.URL == "" || req.Profile == nil {
		missingFields(w)
		return
	}

	writeJSON(w, http.StatusOK, s.seo.Competitors(r.Context(), req.URL, *req.Profile, req.UserInstructions))
}

func (s *Server) handleCompetitorAnalysis(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Competitors []seo.Competitor  `json:"competitors"`
		SeoReport   *seo.Report       `json:"seoReport"`
		Profile     *seo.BrandProfile `json:"profile"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Competitors == nil || req.SeoReport == nil || req.Profile == nil {
		missingFields(w)
		return
	}

	analysis, err := s.seo.CompetitorAnalysis(r.Context(), req.Competitors, *req.SeoReport, *req.Profile)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleSolutionBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL              string             `json:"url"`
		Competitors      []seo.Competitor   `json:"competitors"`
		AnalysisReport   seo.AnalysisReport `json:"analysisReport"`
		Profile          *seo.BrandProfile  `json:"profile"`
		UserInstructions string             `json:"userInstructions"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.URL == "" || req.Profile == nil {
		missingFields(w)
		return
	}

	board, err := s.seo.SolutionBoard(r.Context(), req.URL, req.Competitors, req.AnalysisReport, *req.Profile, req.UserInstructions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleContentBrief(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Solution         *seo.Solution     `json:"solution"`
		URL              string            `json:"url"`
		SeoReport        seo.Report        `json:"seoReport"`
		Competitors      []seo.Competitor  `json:"competitors"`
		Profile          *seo.BrandProfile `json:"profile"`
		UserInstructions string            `json:"userInstructions"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Solution == nil || req.URL == "" || req.Profile == nil {
		missingFields(w)
		return
	}

	brief, err := s.seo.ContentBrief(r.Context(), *req.Solution, req.URL, req.SeoReport, req.Competitors, *req.Profile, req.UserInstructions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brief)
}

func (s *Server) handleWebResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Brief *seo.Brief `json:"brief"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Brief == nil {
		missingField(w, "brief")
		return
	}

	summary, err := s.seo.WebResearch(r.Context(), *req.Brief)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleGenerateOutline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ResearchSummary *string           `json:"researchSummary"`
		Brief           *seo.Brief        `json:"brief"`
		Profile         *seo.BrandProfile `json:"profile"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.ResearchSummary == nil || req.Brief == nil || req.Profile == nil {
		missingFields(w)
		return
	}

	writeJSON(w, http.StatusOK, s.seo.GenerateOutline(r.Context(), *req.ResearchSummary, *req.Brief, *req.Profile))
}

func (s *Server) handleWriteArticle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Outline          []string          `json:"outline"`
		Brief            *seo.Brief        `json:"brief"`
		Profile          *seo.BrandProfile `json:"profile"`
		UserInstructions string            `json:"userInstructions"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Outline == nil || req.Brief == nil || req.Profile == nil {
		missingFields(w)
		return
	}

	article, err := s.seo.WriteArticle(r.Context(), req.Outline, *req.Brief, *req.Profile, req.UserInstructions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"article": article})
}

func (s *Server) handlePolishArticle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Article string `json:"article"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Article == "" {
		missingField(w, "article")
		return
	}

	article, err := s.seo.PolishArticle(r.Context(), req.Article)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"article": article})
}

func (s *Server) handleGenerateMetadata(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Article string     `json:"article"`
		Brief   *seo.Brief `json:"brief"`
	}
	if !s.readBody(w, r, &req) {
		return
	}
	if req.Article == "" || req.Brief == nil {
		missingFields(w)
		return
	}

	meta, err := s.seo.GenerateMetadata(r.Context(), req.Article, *req.Brief)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
