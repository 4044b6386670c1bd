package store

import (
	"errors"
	"time"

	"jibunshi/pkg/domain"
)

// ErrCorruptSession is returned when a stored interview blob cannot be
// decoded. Corruption surfaces as an error rather than silent data loss.
var ErrCorruptSession = errors.New("stored interview session is not valid JSON")

// Store defines persistence operations for users, sessions, interview
// progress, timeline entries, photos, and biographies.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	FindUsersByName(name string) ([]domain.User, error)
	FindUserByBirthday(name string, month, day int) (domain.User, bool, error)
	HasUserIdentity(name string, month, day int) (bool, error)
	DeleteUser(id string) error

	// login sessions
	ReplaceSession(domain.Session) error
	GetSessionByUserID(userID string) (domain.Session, bool, error)
	DeleteSessionByUserID(userID string) error
	DeleteExpiredSessions(now time.Time) (int64, error)

	// interview progress
	UpsertInterviewSession(domain.InterviewSession) (saved bool, err error)
	GetInterviewSession(userID string) (domain.InterviewSession, bool, error)
	DeleteInterviewSession(userID string) (int64, error)

	// timeline
	SaveTimelineEntry(domain.TimelineEntry) error
	GetTimelineEntry(id string) (domain.TimelineEntry, bool, error)
	ListTimelineEntries(userID string) ([]domain.TimelineEntry, error)
	FindAutoEntryByStage(userID string, stage domain.Stage) (domain.TimelineEntry, bool, error)
	DeleteTimelineEntry(id string) error

	// photos
	SavePhoto(domain.Photo) error
	GetPhoto(id string) (domain.Photo, bool, error)
	ListPhotosByUser(userID string) ([]domain.Photo, error)
	ListPhotosByTimelineEntry(entryID string) ([]domain.Photo, error)
	RelinkPhotosToTimelineEntry(userID, entryID string, photoIDs []string) error
	DeletePhoto(id string) error

	// biography
	SaveBiography(domain.Biography) error
	GetBiographyByUserID(userID string) (domain.Biography, bool, error)

	// cleanup
	CleanupUserData(userID string) (domain.CleanupReport, error)
}
