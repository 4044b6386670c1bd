package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"jibunshi/internal/app"
	"jibunshi/pkg/domain"
)

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.app.ListTimeline(user.ID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, timelineListResponse{Entries: entries})
	case http.MethodPost:
		var req timelineRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := s.app.CreateTimelineEntry(user.ID, req.toInput())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleTimelineByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	entryID := strings.TrimPrefix(r.URL.Path, "/api/timeline/")
	if entryID == "" || strings.Contains(entryID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req timelineRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := s.app.UpdateTimelineEntry(user.ID, entryID, req.toInput())
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if err := s.app.DeleteTimelineEntry(user.ID, entryID); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

type timelineRequest struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (req timelineRequest) toInput() app.TimelineInput {
	return app.TimelineInput{
		Year:        req.Year,
		Month:       req.Month,
		Title:       req.Title,
		Description: req.Description,
	}
}

type timelineListResponse struct {
	Entries []domain.TimelineEntry `json:"entries"`
}
