package server

import (
	"net/http"
	"strconv"
	"strings"

	"jibunshi/internal/app"
	"jibunshi/pkg/domain"
)

func (s *Server) handlePhotoUpload(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if max := s.app.MaxUploadBytes(); max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()

	displayOrder := 0
	if raw := firstString(r.FormValue("displayOrder"), r.FormValue("display_order")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			displayOrder = n
		}
	}
	photo, url, err := s.app.UploadPhoto(r.Context(), user.ID, app.UploadPhotoInput{
		OriginalFilename: header.Filename,
		ContentType:      header.Header.Get("Content-Type"),
		SizeBytes:        header.Size,
		Body:             file,
		TimelineEntryID:  firstString(r.FormValue("timelineEntryId"), r.FormValue("timeline_entry_id")),
		DisplayOrder:     displayOrder,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, photoResponse{Photo: photo, URL: url})
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entryID := firstString(r.URL.Query().Get("timelineEntryId"), r.URL.Query().Get("timeline_entry_id"))
	photos, err := s.app.ListPhotos(user.ID, entryID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	items := make([]photoResponse, 0, len(photos))
	for _, photo := range photos {
		url, err := s.app.PhotoURL(r.Context(), photo)
		if err != nil {
			writeAppError(w, err)
			return
		}
		items = append(items, photoResponse{Photo: photo, URL: url})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handlePhotoByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	photoID := strings.TrimPrefix(r.URL.Path, "/api/photos/")
	if photoID == "" || strings.Contains(photoID, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeletePhoto(r.Context(), user.ID, photoID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type photoResponse struct {
	Photo domain.Photo `json:"photo"`
	URL   string       `json:"url"`
}
