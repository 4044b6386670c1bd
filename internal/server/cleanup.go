package server

import (
	"net/http"

	"jibunshi/pkg/domain"
)

func (s *Server) handleCleanupUser(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	report, err := s.app.CleanupUser(user.ID)
	if err != nil {
		s.audit(r, "cleanup.user", "fail", "user_id", user.ID, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "cleanup.user", "success", "user_id", user.ID, "deleted", report.Total)
	writeJSON(w, http.StatusOK, cleanupResponse{Deleted: report, Total: report.Total})
}

type cleanupResponse struct {
	Deleted domain.CleanupReport `json:"deleted"`
	Total   int64                `json:"total"`
}
