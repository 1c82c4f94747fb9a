package api

import (
	"errors"
	"net/http"

	"gemini-studio/internal/branddna"
	"gemini-studio/internal/middleware"
)

func (s *Server) handleExtractDNA(w http.ResponseWriter, r *http.Request) {
	var req branddna.ExtractRequest
	if !s.readBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		jsonError(w, "At least one image (logo or reference) is required", http.StatusBadRequest)
		return
	}

	dna, err := s.extractor.Extract(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dna)
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	uid := currentUID(r)
	profiles, err := s.profiles.List(r.Context(), uid)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []*branddna.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var p branddna.Profile
	if !s.readBody(w, r, &p) {
		return
	}
	if p.Name == "" {
		missingField(w, "name")
		return
	}

	created, err := s.profiles.Create(r.Context(), currentUID(r), p)
	if err != nil {
		if errors.Is(err, branddna.ErrLimitReached) {
			s.logger.Info("brand dna profile limit reached", "uid", currentUID(r))
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var u branddna.ProfileUpdate
	if !s.readBody(w, r, &u) {
		return
	}

	updated, err := s.profiles.Update(r.Context(), currentUID(r), r.PathValue("id"), u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.profiles.Delete(r.Context(), currentUID(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (s *Server) handleActivateProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.SetActive(r.Context(), currentUID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func currentUID(r *http.Request) string {
	user, _ := middleware.UserFromContext(r.Context())
	return user.UID
}
