package server

import (
	"encoding/json"
	"io"
	"net/http"

	"jibunshi/pkg/domain"
)

func (s *Server) handleAICorrect(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.aiLimiter, "too many correction requests") {
		return
	}
	var req textRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	text, corrected, err := s.app.CorrectText(r.Context(), req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, correctResponse{Text: text, Corrected: corrected})
}

func (s *Server) handleAIQuestion(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.aiLimiter, "too many question requests") {
		return
	}
	var req questionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	question, err := s.app.NextQuestion(r.Context(), domain.Stage(req.Stage), req.Asked)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"question": question})
}

func (s *Server) handleAISummary(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.aiLimiter, "too many summary requests") {
		return
	}
	var req textRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	summary, err := s.app.Summarize(r.Context(), req.Text)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type textRequest struct {
	Text string `json:"text"`
}

type correctResponse struct {
	Text      string `json:"text"`
	Corrected bool   `json:"corrected"`
}
