package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"jibunshi/pkg/domain"
	"jibunshi/pkg/storage"
)

// UploadPhotoInput carries one multipart upload.
type UploadPhotoInput struct {
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	Body             io.Reader
	TimelineEntryID  string
	DisplayOrder     int
}

// UploadPhoto validates and stores an uploaded image, then records it.
func (a *App) UploadPhoto(ctx context.Context, userID string, in UploadPhotoInput) (domain.Photo, string, error) {
	if a.photos == nil {
		return domain.Photo{}, "", fmt.Errorf("photo storage is not configured")
	}
	ext := strings.ToLower(filepath.Ext(in.OriginalFilename))
	if !a.allowedExts[ext] {
		return domain.Photo{}, "", fmt.Errorf("%w: file extension %q is not allowed", ErrValidation, ext)
	}
	if in.SizeBytes <= 0 || in.SizeBytes > a.maxUpload {
		return domain.Photo{}, "", fmt.Errorf("%w: file size out of bounds", ErrValidation)
	}
	if in.TimelineEntryID != "" {
		entry, found, err := a.store.GetTimelineEntry(in.TimelineEntryID)
		if err != nil {
			return domain.Photo{}, "", fmt.Errorf("get timeline entry: %w", err)
		}
		if !found || entry.UserID != userID {
			return domain.Photo{}, "", ErrEntryNotFound
		}
	}
	filename := storage.NewFilename(in.OriginalFilename)
	if err := a.photos.Save(ctx, filename, in.Body, in.SizeBytes, in.ContentType); err != nil {
		return domain.Photo{}, "", fmt.Errorf("store photo: %w", err)
	}
	now := time.Now().UTC()
	photo := domain.Photo{
		ID:               uuid.NewString(),
		UserID:           userID,
		Filename:         filename,
		OriginalFilename: in.OriginalFilename,
		ContentType:      in.ContentType,
		SizeBytes:        in.SizeBytes,
		TimelineEntryID:  in.TimelineEntryID,
		DisplayOrder:     in.DisplayOrder,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := a.store.SavePhoto(photo); err != nil {
		// The object is orphaned if the row insert fails; remove it.
		if delErr := a.photos.Delete(ctx, filename); delErr != nil {
			slog.Warn("orphaned photo object", "filename", filename, "error", delErr)
		}
		return domain.Photo{}, "", fmt.Errorf("save photo: %w", err)
	}
	url, err := a.photos.URL(ctx, filename)
	if err != nil {
		return domain.Photo{}, "", fmt.Errorf("photo url: %w", err)
	}
	return photo, url, nil
}

// ListPhotos returns the user's photos, optionally scoped to one timeline
// entry, ordered by display order.
func (a *App) ListPhotos(userID, timelineEntryID string) ([]domain.Photo, error) {
	if timelineEntryID != "" {
		entry, found, err := a.store.GetTimelineEntry(timelineEntryID)
		if err != nil {
			return nil, fmt.Errorf("get timeline entry: %w", err)
		}
		if !found || entry.UserID != userID {
			return nil, ErrEntryNotFound
		}
		photos, err := a.store.ListPhotosByTimelineEntry(timelineEntryID)
		if err != nil {
			return nil, fmt.Errorf("list photos: %w", err)
		}
		return photos, nil
	}
	photos, err := a.store.ListPhotosByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	return photos, nil
}

// PhotoURL resolves the serving URL for a stored photo.
func (a *App) PhotoURL(ctx context.Context, photo domain.Photo) (string, error) {
	if a.photos == nil {
		return "", fmt.Errorf("photo storage is not configured")
	}
	return a.photos.URL(ctx, photo.Filename)
}

// DeletePhoto removes the row and the stored object.
func (a *App) DeletePhoto(ctx context.Context, userID, photoID string) error {
	photo, found, err := a.store.GetPhoto(photoID)
	if err != nil {
		return fmt.Errorf("get photo: %w", err)
	}
	if !found || photo.UserID != userID {
		return ErrPhotoNotFound
	}
	if err := a.store.DeletePhoto(photoID); err != nil {
		return fmt.Errorf("delete photo: %w", err)
	}
	if a.photos != nil {
		if err := a.photos.Delete(ctx, photo.Filename); err != nil {
			slog.Warn("delete photo object", "filename", photo.Filename, "error", err)
		}
	}
	return nil
}

// deleteStoredPhotoFiles best-effort removes every stored object for a user.
// Row deletion is handled separately by the caller.
func (a *App) deleteStoredPhotoFiles(userID string) {
	if a.photos == nil {
		return
	}
	photos, err := a.store.ListPhotosByUser(userID)
	if err != nil {
		slog.Warn("list photos for cleanup", "user_id", userID, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, photo := range photos {
		if err := a.photos.Delete(ctx, photo.Filename); err != nil {
			slog.Warn("delete photo object", "filename", photo.Filename, "error", err)
		}
	}
}
