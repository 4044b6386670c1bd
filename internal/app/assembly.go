package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"jibunshi/pkg/domain"
)

// AssembleInput carries one stage's answered questions for assembly into the
// biography. Year and Month position the auto-generated timeline entry.
type AssembleInput struct {
	Stage   domain.Stage
	Answers []domain.InterviewAnswer
	Year    int
	Month   int
}

var stageTitles = map[domain.Stage]string{
	domain.StageBirth:      "誕生",
	domain.StageChildhood:  "子供時代",
	domain.StageSchool:     "学生時代",
	domain.StageWork:       "仕事",
	domain.StageMemory:     "思い出",
	domain.StageRetirement: "退職後",
}

// AssembleBiography turns one stage's answers into corrected narrative text,
// merges it into the user's biography, and maintains the auto-generated
// timeline entry for that stage. The interview scratch snapshot is deleted
// on success since its content is now persisted in final form.
func (a *App) AssembleBiography(ctx context.Context, userID string, in AssembleInput) (domain.Biography, error) {
	if a.generator == nil {
		return domain.Biography{}, ErrAIUnavailable
	}
	if !domain.KnownStage(in.Stage) {
		return domain.Biography{}, fmt.Errorf("%w: unknown stage %q", ErrValidation, in.Stage)
	}
	fragment := joinAnswers(in.Answers)
	if fragment == "" {
		return domain.Biography{}, fmt.Errorf("%w: answers are required", ErrValidation)
	}

	var corrected, summary string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		corrected, err = a.correctStrict(gctx, fragment)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = a.Summarize(gctx, fragment)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Biography{}, err
	}

	now := time.Now().UTC()
	bio, found, err := a.store.GetBiographyByUserID(userID)
	if err != nil {
		return domain.Biography{}, fmt.Errorf("get biography: %w", err)
	}
	if !found {
		bio = domain.Biography{
			ID:        uuid.NewString(),
			UserID:    userID,
			CreatedAt: now,
		}
	}
	section := fmt.Sprintf("【%s】\n%s", stageTitles[in.Stage], corrected)
	bio.Content = appendSection(bio.Content, in.Stage, section)
	bio.Summary = summary
	bio.UpdatedAt = now
	if err := a.store.SaveBiography(bio); err != nil {
		return domain.Biography{}, fmt.Errorf("save biography: %w", err)
	}

	if err := a.replaceAutoEntry(userID, in, corrected, now); err != nil {
		return domain.Biography{}, err
	}
	if _, err := a.store.DeleteInterviewSession(userID); err != nil {
		return domain.Biography{}, fmt.Errorf("clear interview snapshot: %w", err)
	}

	user, found, err := a.store.GetUserByID(userID)
	if err == nil && found {
		user.ProgressStage = in.Stage
		user.UpdatedAt = now
		if err := a.store.SaveUser(user); err != nil {
			return domain.Biography{}, fmt.Errorf("update progress stage: %w", err)
		}
	}
	return bio, nil
}

// replaceAutoEntry maintains exactly one auto-generated timeline entry per
// stage. Photos linked to a replaced entry move to its successor.
func (a *App) replaceAutoEntry(userID string, in AssembleInput, corrected string, now time.Time) error {
	entry := domain.TimelineEntry{
		ID:               uuid.NewString(),
		UserID:           userID,
		Year:             in.Year,
		Month:            in.Month,
		Title:            stageTitles[in.Stage],
		Description:      joinAnswers(in.Answers),
		CorrectedContent: corrected,
		Stage:            in.Stage,
		IsAutoGenerated:  true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	previous, found, err := a.store.FindAutoEntryByStage(userID, in.Stage)
	if err != nil {
		return fmt.Errorf("find auto entry: %w", err)
	}
	if err := a.store.SaveTimelineEntry(entry); err != nil {
		return fmt.Errorf("save auto entry: %w", err)
	}
	if found {
		moved, err := a.store.ListPhotosByTimelineEntry(previous.ID)
		if err != nil {
			return fmt.Errorf("list entry photos: %w", err)
		}
		ids := make([]string, 0, len(moved))
		for _, photo := range moved {
			ids = append(ids, photo.ID)
		}
		if len(ids) > 0 {
			if err := a.store.RelinkPhotosToTimelineEntry(userID, entry.ID, ids); err != nil {
				return fmt.Errorf("relink photos: %w", err)
			}
		}
		if err := a.store.DeleteTimelineEntry(previous.ID); err != nil {
			return fmt.Errorf("delete stale auto entry: %w", err)
		}
	}

	// Photos referenced from the answers themselves attach to the new entry.
	var answerPhotoIDs []string
	for _, ans := range in.Answers {
		answerPhotoIDs = append(answerPhotoIDs, ans.PhotoIDs...)
	}
	if len(answerPhotoIDs) > 0 {
		if err := a.store.RelinkPhotosToTimelineEntry(userID, entry.ID, answerPhotoIDs); err != nil {
			return fmt.Errorf("relink answer photos: %w", err)
		}
	}
	return nil
}

// GetBiography returns the user's biography.
func (a *App) GetBiography(userID string) (domain.Biography, error) {
	bio, found, err := a.store.GetBiographyByUserID(userID)
	if err != nil {
		return domain.Biography{}, fmt.Errorf("get biography: %w", err)
	}
	if !found {
		return domain.Biography{}, ErrBiographyNotFound
	}
	return bio, nil
}

// UpdateBiography applies a manual edit to the final text. Nil fields are
// left untouched.
func (a *App) UpdateBiography(userID string, content, summary *string) (domain.Biography, error) {
	bio, found, err := a.store.GetBiographyByUserID(userID)
	if err != nil {
		return domain.Biography{}, fmt.Errorf("get biography: %w", err)
	}
	if !found {
		return domain.Biography{}, ErrBiographyNotFound
	}
	if content == nil && summary == nil {
		return domain.Biography{}, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if content != nil {
		bio.Content = *content
	}
	if summary != nil {
		bio.Summary = *summary
	}
	bio.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveBiography(bio); err != nil {
		return domain.Biography{}, fmt.Errorf("save biography: %w", err)
	}
	return bio, nil
}

// joinAnswers flattens answered questions into one narrative fragment with
// stable separators so assembly output is deterministic for the same input.
func joinAnswers(answers []domain.InterviewAnswer) string {
	parts := make([]string, 0, len(answers))
	for _, ans := range answers {
		answer := strings.TrimSpace(ans.Answer)
		if answer == "" {
			continue
		}
		question := strings.TrimSpace(ans.Question)
		if question != "" {
			parts = append(parts, question+"\n"+answer)
		} else {
			parts = append(parts, answer)
		}
	}
	return strings.Join(parts, "\n\n")
}

// appendSection replaces the stage's section when it already exists in the
// biography, otherwise appends it. Sections are delimited by their 【stage】
// headings, so corrected text containing blank lines stays intact.
func appendSection(content string, stage domain.Stage, section string) string {
	if content == "" {
		return section
	}
	marker := fmt.Sprintf("【%s】", stageTitles[stage])
	start := strings.Index(content, marker)
	if start == -1 {
		return strings.TrimRight(content, "\n") + "\n\n" + section
	}
	end := len(content)
	for _, title := range stageTitles {
		other := fmt.Sprintf("【%s】", title)
		if other == marker {
			continue
		}
		if idx := strings.Index(content[start+len(marker):], other); idx != -1 {
			if abs := start + len(marker) + idx; abs < end {
				end = abs
			}
		}
	}
	head := strings.TrimRight(content[:start], "\n")
	tail := content[end:]
	if head != "" {
		head += "\n\n"
	}
	if tail != "" {
		tail = "\n\n" + strings.TrimLeft(tail, "\n")
	}
	return head + section + tail
}
