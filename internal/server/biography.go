package server

import (
	"encoding/json"
	"io"
	"net/http"

	"jibunshi/internal/app"
	"jibunshi/pkg/domain"
)

func (s *Server) handleBiography(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		bio, err := s.app.GetBiography(user.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bio)
	case http.MethodPut:
		var req biographyUpdateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		bio, err := s.app.UpdateBiography(user.ID, req.Content, req.Summary)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bio)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleBiographyAssemble(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.aiLimiter, "too many assembly requests") {
		return
	}
	var req assembleRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	bio, err := s.app.AssembleBiography(r.Context(), user.ID, app.AssembleInput{
		Stage:   domain.Stage(req.Stage),
		Answers: req.Answers,
		Year:    req.Year,
		Month:   req.Month,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bio)
}

type biographyUpdateRequest struct {
	Content *string `json:"content"`
	Summary *string `json:"summary"`
}

type assembleRequest struct {
	Stage   string                   `json:"stage"`
	Answers []domain.InterviewAnswer `json:"answers"`
	Year    int                      `json:"year"`
	Month   int                      `json:"month"`
}
