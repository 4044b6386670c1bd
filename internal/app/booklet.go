package app

import (
	"fmt"
	"path/filepath"

	"jibunshi/pkg/pdf"
	"jibunshi/pkg/storage"
)

// BookletResult reports one generated booklet file.
type BookletResult struct {
	Filename string
	Pages    int
}

// GenerateBooklet renders the user's biography, photos and timeline into a
// PDF booklet. It requires a finished biography.
func (a *App) GenerateBooklet(userID string) (BookletResult, error) {
	if a.renderer == nil {
		return BookletResult{}, fmt.Errorf("pdf rendering is not configured")
	}
	user, err := a.GetUser(userID)
	if err != nil {
		return BookletResult{}, err
	}
	bio, found, err := a.store.GetBiographyByUserID(userID)
	if err != nil {
		return BookletResult{}, fmt.Errorf("get biography: %w", err)
	}
	if !found {
		return BookletResult{}, ErrBiographyNotFound
	}
	entries, err := a.store.ListTimelineEntries(userID)
	if err != nil {
		return BookletResult{}, fmt.Errorf("list timeline: %w", err)
	}
	photos, err := a.store.ListPhotosByUser(userID)
	if err != nil {
		return BookletResult{}, fmt.Errorf("list photos: %w", err)
	}

	booklet := pdf.Booklet{
		Title:     fmt.Sprintf("%sの自分史", user.Name),
		UserName:  user.Name,
		BirthYear: user.BirthYear,
		Content:   bio.Content,
		Summary:   bio.Summary,
	}
	// Photo pages need local file paths; the MinIO backend serves presigned
	// URLs instead and is skipped here.
	if fileStore, ok := a.photos.(*storage.FileStore); ok {
		for _, photo := range photos {
			booklet.Photos = append(booklet.Photos, pdf.PhotoItem{
				Path:    filepath.Join(fileStore.Dir(), photo.Filename),
				Caption: photo.OriginalFilename,
			})
		}
	}
	for _, entry := range entries {
		text := entry.Description
		if entry.CorrectedContent != "" {
			text = entry.CorrectedContent
		}
		booklet.Events = append(booklet.Events, pdf.Event{
			Year:  entry.Year,
			Month: entry.Month,
			Title: entry.Title,
			Text:  text,
		})
	}

	filename, pages, err := a.renderer.Render(booklet)
	if err != nil {
		return BookletResult{}, fmt.Errorf("render booklet: %w", err)
	}
	return BookletResult{Filename: filename, Pages: pages}, nil
}

// BookletDir returns the directory rendered booklets are written to, or ""
// when rendering is unconfigured.
func (a *App) BookletDir() string {
	if a.renderer == nil {
		return ""
	}
	return a.renderer.Dir()
}
