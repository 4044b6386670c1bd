package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"jibunshi/pkg/domain"
)

func (s *Server) handlePDFGenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	result, err := s.app.GenerateBooklet(user.ID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filename": result.Filename,
		"pages":    result.Pages,
	})
}

func (s *Server) handlePDFDownload(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	dir := s.app.BookletDir()
	if dir == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	filename := strings.TrimPrefix(r.URL.Path, "/api/pdf/download/")
	// Reject anything that is not a bare generated pdf name.
	if filename == "" || filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".pdf") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	path := filepath.Join(dir, filename)
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}
