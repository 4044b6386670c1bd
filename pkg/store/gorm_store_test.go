package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"jibunshi/pkg/domain"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := NewGormStore(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func seedUser(t *testing.T, s *GormStore, name string, month, day int) domain.User {
	t.Helper()
	now := time.Now().UTC()
	user := domain.User{
		ID:         uuid.NewString(),
		Name:       name,
		Age:        65,
		BirthMonth: month,
		BirthDay:   day,
		BirthYear:  1961,
		PINHash:    "hash",
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.SaveUser(user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return user
}

func snapshot(userID string, index int, ts int64) domain.InterviewSession {
	now := time.Now().UTC()
	return domain.InterviewSession{
		ID:            uuid.NewString(),
		UserID:        userID,
		QuestionIndex: index,
		Conversation: []domain.ChatMessage{
			{Role: "assistant", Content: "q"},
			{Role: "user", Content: "a"},
		},
		Answers:         []domain.InterviewAnswer{{Question: "q", Answer: "a"}},
		ClientTimestamp: ts,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestIdentityUniqueness(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "田中太郎", 4, 15)

	taken, err := s.HasUserIdentity("田中太郎", 4, 15)
	if err != nil || !taken {
		t.Fatalf("HasUserIdentity = %v, %v", taken, err)
	}
	free, err := s.HasUserIdentity("田中太郎", 4, 16)
	if err != nil || free {
		t.Fatalf("different birthday reported taken: %v, %v", free, err)
	}

	// The composite unique index also rejects a raw duplicate insert.
	dup := domain.User{
		ID:         uuid.NewString(),
		Name:       "田中太郎",
		BirthMonth: 4,
		BirthDay:   15,
		Status:     domain.StatusActive,
	}
	if err := s.db.Create(userToModelPtr(dup)).Error; err == nil {
		t.Fatalf("duplicate identity insert succeeded")
	}
}

func userToModelPtr(u domain.User) *UserModel {
	m := userToModel(u)
	return &m
}

func TestUpsertInterviewSessionOrdering(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)

	// Strictly increasing timestamps all win; load returns the latest.
	for i := 1; i <= 5; i++ {
		saved, err := s.UpsertInterviewSession(snapshot(user.ID, i, int64(i*100)))
		if err != nil || !saved {
			t.Fatalf("save %d = %v, %v", i, saved, err)
		}
	}
	sess, found, err := s.GetInterviewSession(user.ID)
	if err != nil || !found {
		t.Fatalf("get: %v, %v", found, err)
	}
	if sess.QuestionIndex != 5 || sess.ClientTimestamp != 500 {
		t.Fatalf("got index %d ts %d, want 5 / 500", sess.QuestionIndex, sess.ClientTimestamp)
	}

	// Equal and older timestamps are both skipped and leave data untouched.
	for _, ts := range []int64{500, 499, 1} {
		saved, err := s.UpsertInterviewSession(snapshot(user.ID, 99, ts))
		if err != nil {
			t.Fatalf("stale save ts %d: %v", ts, err)
		}
		if saved {
			t.Fatalf("stale save ts %d accepted", ts)
		}
	}
	sess, _, err = s.GetInterviewSession(user.ID)
	if err != nil {
		t.Fatalf("get after stale saves: %v", err)
	}
	if sess.QuestionIndex != 5 {
		t.Fatalf("stale save changed data: index %d", sess.QuestionIndex)
	}

	// Exactly one row per user regardless of save count.
	var count int64
	if err := s.db.Model(&InterviewSessionModel{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count = %d, want 1", count)
	}
}

func TestGetInterviewSessionCorruptBlob(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	if _, err := s.UpsertInterviewSession(snapshot(user.ID, 1, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.db.Model(&InterviewSessionModel{}).
		Where("user_id = ?", user.ID).
		Update("conversation", []byte("{not json")).Error; err != nil {
		t.Fatalf("corrupt row: %v", err)
	}

	_, _, err := s.GetInterviewSession(user.ID)
	if !errors.Is(err, ErrCorruptSession) {
		t.Fatalf("err = %v, want ErrCorruptSession", err)
	}
}

func TestDeleteInterviewSessionIdempotent(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	if _, err := s.UpsertInterviewSession(snapshot(user.ID, 1, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}

	n, err := s.DeleteInterviewSession(user.ID)
	if err != nil || n != 1 {
		t.Fatalf("first delete = %d, %v", n, err)
	}
	n, err = s.DeleteInterviewSession(user.ID)
	if err != nil || n != 0 {
		t.Fatalf("second delete = %d, %v", n, err)
	}
}

func TestReplaceSessionSupersedes(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	now := time.Now().UTC()

	for _, hash := range []string{"hash-1", "hash-2"} {
		err := s.ReplaceSession(domain.Session{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			TokenHash: hash,
			ExpiresAt: now.Add(time.Hour),
			CreatedAt: now,
		})
		if err != nil {
			t.Fatalf("replace session: %v", err)
		}
	}

	sess, found, err := s.GetSessionByUserID(user.ID)
	if err != nil || !found {
		t.Fatalf("get session: %v, %v", found, err)
	}
	if sess.TokenHash != "hash-2" {
		t.Fatalf("token hash = %q, want the newer session", sess.TokenHash)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	expired := seedUser(t, s, "expired", 1, 1)
	active := seedUser(t, s, "active", 1, 2)

	mustReplace := func(userID string, expiresAt time.Time) {
		t.Helper()
		if err := s.ReplaceSession(domain.Session{
			ID: uuid.NewString(), UserID: userID, TokenHash: "h", ExpiresAt: expiresAt, CreatedAt: now,
		}); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}
	mustReplace(expired.ID, now.Add(-time.Minute))
	mustReplace(active.ID, now.Add(time.Hour))

	n, err := s.DeleteExpiredSessions(now)
	if err != nil || n != 1 {
		t.Fatalf("deleted %d, %v; want 1", n, err)
	}
	if _, found, _ := s.GetSessionByUserID(active.ID); !found {
		t.Fatalf("active session swept")
	}
}

func TestDeleteTimelineEntryDetachesPhotos(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	now := time.Now().UTC()

	entry := domain.TimelineEntry{
		ID: uuid.NewString(), UserID: user.ID, Year: 1970, Month: 1, Title: "t",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.SaveTimelineEntry(entry); err != nil {
		t.Fatalf("save entry: %v", err)
	}
	photo := domain.Photo{
		ID: uuid.NewString(), UserID: user.ID, Filename: "f.jpg",
		TimelineEntryID: entry.ID, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.SavePhoto(photo); err != nil {
		t.Fatalf("save photo: %v", err)
	}

	if err := s.DeleteTimelineEntry(entry.ID); err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	got, found, err := s.GetPhoto(photo.ID)
	if err != nil || !found {
		t.Fatalf("photo row deleted with entry: %v, %v", found, err)
	}
	if got.TimelineEntryID != "" {
		t.Fatalf("photo still linked to deleted entry: %q", got.TimelineEntryID)
	}
}

func TestRelinkPhotosToTimelineEntry(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	now := time.Now().UTC()

	mustEntry := func(title string) domain.TimelineEntry {
		t.Helper()
		e := domain.TimelineEntry{
			ID: uuid.NewString(), UserID: user.ID, Year: 1970, Month: 1, Title: title,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := s.SaveTimelineEntry(e); err != nil {
			t.Fatalf("save entry: %v", err)
		}
		return e
	}
	entry := mustEntry("entry")

	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		p := domain.Photo{
			ID: uuid.NewString(), UserID: user.ID, Filename: uuid.NewString() + ".jpg",
			TimelineEntryID: entry.ID, CreatedAt: now, UpdatedAt: now,
		}
		if err := s.SavePhoto(p); err != nil {
			t.Fatalf("save photo: %v", err)
		}
		ids = append(ids, p.ID)
	}

	// The relink replaces the full photo set for the entry: prior links are
	// cleared and only the listed photos end up attached.
	if err := s.RelinkPhotosToTimelineEntry(user.ID, entry.ID, ids[:1]); err != nil {
		t.Fatalf("relink: %v", err)
	}
	kept, _, err := s.GetPhoto(ids[0])
	if err != nil || kept.TimelineEntryID != entry.ID {
		t.Fatalf("kept photo link = %q, %v", kept.TimelineEntryID, err)
	}
	for _, id := range ids[1:] {
		dropped, _, err := s.GetPhoto(id)
		if err != nil || dropped.TimelineEntryID != "" {
			t.Fatalf("unlisted photo link = %q, %v", dropped.TimelineEntryID, err)
		}
	}
}

func TestSaveBiographyUpsertsByUser(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	now := time.Now().UTC()

	for _, content := range []string{"first draft", "second draft"} {
		err := s.SaveBiography(domain.Biography{
			ID: uuid.NewString(), UserID: user.ID, Content: content, Summary: "s",
			CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("save biography: %v", err)
		}
	}

	bio, found, err := s.GetBiographyByUserID(user.ID)
	if err != nil || !found {
		t.Fatalf("get biography: %v, %v", found, err)
	}
	if bio.Content != "second draft" {
		t.Fatalf("content = %q, want the newer draft", bio.Content)
	}
	var count int64
	if err := s.db.Model(&BiographyModel{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("biography rows = %d, want 1", count)
	}
}

func TestSavePhotoFilenameUnique(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	now := time.Now().UTC()

	// Stored names are generated uuids; the unique index backs that up by
	// rejecting a second row claiming the same object.
	if err := s.SavePhoto(domain.Photo{
		ID: uuid.NewString(), UserID: user.ID, Filename: "same.jpg", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("save photo: %v", err)
	}
	err := s.SavePhoto(domain.Photo{
		ID: uuid.NewString(), UserID: user.ID, Filename: "same.jpg", CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatalf("duplicate stored filename accepted")
	}
}

func TestCleanupUserDataScopedAndCounted(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "target", 1, 1)
	other := seedUser(t, s, "other", 2, 2)
	now := time.Now().UTC()

	if _, err := s.UpsertInterviewSession(snapshot(user.ID, 1, 1)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.SaveTimelineEntry(domain.TimelineEntry{
			ID: uuid.NewString(), UserID: user.ID, Year: 1970 + i, Month: 1, Title: "t",
			CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			t.Fatalf("save entry: %v", err)
		}
	}
	if err := s.SavePhoto(domain.Photo{
		ID: uuid.NewString(), UserID: user.ID, Filename: "f.jpg", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("save photo: %v", err)
	}
	if err := s.SaveBiography(domain.Biography{
		ID: uuid.NewString(), UserID: user.ID, Content: "c", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("save biography: %v", err)
	}
	if err := s.SaveTimelineEntry(domain.TimelineEntry{
		ID: uuid.NewString(), UserID: other.ID, Year: 1990, Month: 1, Title: "other",
		CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("save other entry: %v", err)
	}

	report, err := s.CleanupUserData(user.ID)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if report.InterviewSessions != 1 || report.TimelineEntries != 3 || report.Photos != 1 || report.Biographies != 1 {
		t.Fatalf("counts: %+v", report)
	}
	if report.Total != 6 {
		t.Fatalf("total = %d, want 6", report.Total)
	}

	// Untouched user keeps their data; the target user keeps the account.
	entries, err := s.ListTimelineEntries(other.ID)
	if err != nil || len(entries) != 1 {
		t.Fatalf("other user data affected: %v, %v", entries, err)
	}
	if _, found, _ := s.GetUserByID(user.ID); !found {
		t.Fatalf("cleanup deleted the account")
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	user := seedUser(t, s, "u", 1, 1)
	now := time.Now().UTC()
	if _, err := s.UpsertInterviewSession(snapshot(user.ID, 1, 1)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := s.ReplaceSession(domain.Session{
		ID: uuid.NewString(), UserID: user.ID, TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}); err != nil {
		t.Fatalf("replace session: %v", err)
	}

	if err := s.DeleteUser(user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, found, _ := s.GetUserByID(user.ID); found {
		t.Fatalf("user survived delete")
	}
	if _, found, _ := s.GetSessionByUserID(user.ID); found {
		t.Fatalf("session survived delete")
	}
	if _, found, _ := s.GetInterviewSession(user.ID); found {
		t.Fatalf("interview snapshot survived delete")
	}
}
