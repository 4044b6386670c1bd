package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"jibunshi/internal/app"
	"jibunshi/pkg/domain"
	"jibunshi/pkg/store"
)

func (s *Server) handleInterviewSave(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req interviewSaveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	saved, err := s.app.SaveInterview(user.ID, app.SaveInterviewInput{
		QuestionIndex:   firstInt(req.QuestionIndex, req.QuestionIndexAlt),
		Conversation:    req.Conversation,
		Answers:         req.Answers,
		ClientTimestamp: firstInt64(req.Timestamp, req.ClientTimestamp),
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !saved {
		// A newer snapshot is already stored. This is not an error: the
		// stale writer simply loses.
		writeJSON(w, http.StatusOK, interviewSaveResponse{Success: false, Skipped: true})
		return
	}
	writeJSON(w, http.StatusOK, interviewSaveResponse{Success: true})
}

func (s *Server) handleInterviewLoad(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	sess, err := s.app.LoadInterview(user.ID)
	if err != nil {
		if errors.Is(err, store.ErrCorruptSession) {
			writeError(w, http.StatusInternalServerError, "stored session is corrupt")
			return
		}
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, interviewLoadResponse{
		QuestionIndex: sess.QuestionIndex,
		Conversation:  sess.Conversation,
		Answers:       sess.Answers,
		Timestamp:     sess.ClientTimestamp,
		UpdatedAt:     sess.UpdatedAt,
	})
}

func (s *Server) handleInterviewDelete(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteInterview(user.ID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInterviewQuestion(w http.ResponseWriter, r *http.Request, user domain.User) {
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

type interviewSaveRequest struct {
	QuestionIndex    int                      `json:"questionIndex"`
	QuestionIndexAlt int                      `json:"current_question_index"`
	Conversation     []domain.ChatMessage     `json:"conversation"`
	Answers          []domain.InterviewAnswer `json:"answers"`
	Timestamp        int64                    `json:"timestamp"`
	ClientTimestamp  int64                    `json:"clientTimestamp"`
}

type interviewSaveResponse struct {
	Success bool `json:"success"`
	Skipped bool `json:"skipped,omitempty"`
}

type interviewLoadResponse struct {
	QuestionIndex int                      `json:"questionIndex"`
	Conversation  []domain.ChatMessage     `json:"conversation"`
	Answers       []domain.InterviewAnswer `json:"answers"`
	Timestamp     int64                    `json:"timestamp"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

type questionRequest struct {
	Stage string   `json:"stage"`
	Asked []string `json:"asked"`
}

func firstInt64(values ...int64) int64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
