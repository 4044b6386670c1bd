package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jibunshi/pkg/domain"
)

// TimelineInput carries the editable fields of a timeline entry.
type TimelineInput struct {
	Year        int
	Month       int
	Title       string
	Description string
}

func (in TimelineInput) validate() error {
	if in.Year < 1850 || in.Year > time.Now().Year()+1 {
		return fmt.Errorf("%w: year out of range", ErrValidation)
	}
	if in.Month < 0 || in.Month > 12 {
		return fmt.Errorf("%w: month out of range", ErrValidation)
	}
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	return nil
}

// ListTimeline returns the user's entries ordered chronologically.
func (a *App) ListTimeline(userID string) ([]domain.TimelineEntry, error) {
	entries, err := a.store.ListTimelineEntries(userID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	return entries, nil
}

// CreateTimelineEntry adds a manual entry.
func (a *App) CreateTimelineEntry(userID string, in TimelineInput) (domain.TimelineEntry, error) {
	if err := in.validate(); err != nil {
		return domain.TimelineEntry{}, err
	}
	now := time.Now().UTC()
	entry := domain.TimelineEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Year:        in.Year,
		Month:       in.Month,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveTimelineEntry(entry); err != nil {
		return domain.TimelineEntry{}, fmt.Errorf("save timeline entry: %w", err)
	}
	return entry, nil
}

// UpdateTimelineEntry updates an entry owned by the user. Entries belonging
// to other users are reported as not found, never as forbidden.
func (a *App) UpdateTimelineEntry(userID, entryID string, in TimelineInput) (domain.TimelineEntry, error) {
	if err := in.validate(); err != nil {
		return domain.TimelineEntry{}, err
	}
	entry, found, err := a.store.GetTimelineEntry(entryID)
	if err != nil {
		return domain.TimelineEntry{}, fmt.Errorf("get timeline entry: %w", err)
	}
	if !found || entry.UserID != userID {
		return domain.TimelineEntry{}, ErrEntryNotFound
	}
	entry.Year = in.Year
	entry.Month = in.Month
	entry.Title = strings.TrimSpace(in.Title)
	entry.Description = in.Description
	entry.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveTimelineEntry(entry); err != nil {
		return domain.TimelineEntry{}, fmt.Errorf("save timeline entry: %w", err)
	}
	return entry, nil
}

// DeleteTimelineEntry removes an entry. Attached photo rows survive with
// their entry reference cleared.
func (a *App) DeleteTimelineEntry(userID, entryID string) error {
	entry, found, err := a.store.GetTimelineEntry(entryID)
	if err != nil {
		return fmt.Errorf("get timeline entry: %w", err)
	}
	if !found || entry.UserID != userID {
		return ErrEntryNotFound
	}
	if err := a.store.DeleteTimelineEntry(entryID); err != nil {
		return fmt.Errorf("delete timeline entry: %w", err)
	}
	return nil
}
