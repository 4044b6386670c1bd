package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"jibunshi/pkg/domain"
)

const migrateLockID int64 = 84218421

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// GormStore implements Store using GORM on Postgres or SQLite. The driver is
// chosen at startup; both backends share the same models and queries.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB for the given driver and runs auto-migrations.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres, "":
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &GormStore{db: db}
	if s.isSQLite() {
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
		if err := s.migrate(db); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := withMigrationLock(db, s.migrate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GormStore) isSQLite() bool {
	return s.db.Dialector.Name() == DriverSQLite
}

func (s *GormStore) migrate(tx *gorm.DB) error {
	if err := tx.AutoMigrate(
		&UserModel{},
		&SessionModel{},
		&InterviewSessionModel{},
		&TimelineEntryModel{},
		&PhotoModel{},
		&BiographyModel{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// withMigrationLock serializes migrations across replicas with a Postgres
// advisory lock. SQLite is single-writer and skips it.
func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "age", "birth_month", "birth_day", "birth_year", "pin_hash", "status", "progress_stage", "updated_at"}),
	}).Create(&model).Error
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// FindUsersByName returns every user sharing a display name, oldest first.
func (s *GormStore) FindUsersByName(name string) ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Where("name = ?", name).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

// FindUserByBirthday narrows a name to a single user via birth month/day.
func (s *GormStore) FindUserByBirthday(name string, month, day int) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("name = ? AND birth_month = ? AND birth_day = ?", name, month, day).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// HasUserIdentity checks whether the (name, month, day) triple is taken.
func (s *GormStore) HasUserIdentity(name string, month, day int) (bool, error) {
	var count int64
	err := s.db.Model(&UserModel{}).
		Where("name = ? AND birth_month = ? AND birth_day = ?", name, month, day).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteUser hard-deletes a user. Dependent rows go with it via FK cascade;
// the explicit child deletes keep behavior identical on backends where the
// cascade constraint did not materialize.
func (s *GormStore) DeleteUser(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&SessionModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&InterviewSessionModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&PhotoModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&TimelineEntryModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&BiographyModel{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&UserModel{}, "id = ?", id).Error
	})
}

// ReplaceSession supersedes any existing login session for the user.
func (s *GormStore) ReplaceSession(sess domain.Session) error {
	model := sessionToModel(sess)
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&SessionModel{}, "user_id = ?", sess.UserID).Error; err != nil {
			return err
		}
		return tx.Create(&model).Error
	})
}

// GetSessionByUserID returns the active login session for a user.
func (s *GormStore) GetSessionByUserID(userID string) (domain.Session, bool, error) {
	var model SessionModel
	if err := s.db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// DeleteSessionByUserID logs the user out server-side.
func (s *GormStore) DeleteSessionByUserID(userID string) error {
	return s.db.Delete(&SessionModel{}, "user_id = ?", userID).Error
}

// DeleteExpiredSessions removes sessions past their absolute expiry.
func (s *GormStore) DeleteExpiredSessions(now time.Time) (int64, error) {
	res := s.db.Delete(&SessionModel{}, "expires_at < ?", now.UTC())
	return res.RowsAffected, res.Error
}

// UpsertInterviewSession persists interview progress with last-writer-wins
// ordering on the client-supplied timestamp. The write is skipped (saved ==
// false) unless the incoming timestamp is strictly newer than the stored
// one, so no write can overwrite a causally later write.
func (s *GormStore) UpsertInterviewSession(sess domain.InterviewSession) (bool, error) {
	model, err := interviewToModel(sess)
	if err != nil {
		return false, err
	}
	saved := false
	txErr := s.db.Transaction(func(tx *gorm.DB) error {
		var existing InterviewSessionModel
		err := tx.Where("user_id = ?", sess.UserID).
			Order("updated_at DESC").
			First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			saved = true
			return tx.Create(&model).Error
		}
		if err != nil {
			return err
		}
		if sess.ClientTimestamp <= existing.ClientTimestamp {
			return nil
		}
		saved = true
		return tx.Model(&InterviewSessionModel{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"question_index":   model.QuestionIndex,
				"conversation":     model.Conversation,
				"answers":          model.Answers,
				"client_timestamp": model.ClientTimestamp,
				"updated_at":       time.Now().UTC(),
			}).Error
	})
	if txErr != nil {
		return false, txErr
	}
	return saved, nil
}

// GetInterviewSession returns the most recently updated progress row. A row
// whose stored blobs fail to decode surfaces ErrCorruptSession.
func (s *GormStore) GetInterviewSession(userID string) (domain.InterviewSession, bool, error) {
	var model InterviewSessionModel
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.InterviewSession{}, false, nil
		}
		return domain.InterviewSession{}, false, err
	}
	sess, err := interviewFromModel(model)
	if err != nil {
		return domain.InterviewSession{}, false, err
	}
	return sess, true, nil
}

// DeleteInterviewSession clears the scratch state once the interview is
// finalized or abandoned.
func (s *GormStore) DeleteInterviewSession(userID string) (int64, error) {
	res := s.db.Delete(&InterviewSessionModel{}, "user_id = ?", userID)
	return res.RowsAffected, res.Error
}

// SaveTimelineEntry stores or updates a life-event entry.
func (s *GormStore) SaveTimelineEntry(e domain.TimelineEntry) error {
	model := timelineToModel(e)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"year", "month", "title", "description", "corrected_content", "stage", "is_auto_generated", "updated_at"}),
	}).Create(&model).Error
}

// GetTimelineEntry retrieves one entry by ID.
func (s *GormStore) GetTimelineEntry(id string) (domain.TimelineEntry, bool, error) {
	var model TimelineEntryModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.TimelineEntry{}, false, nil
		}
		return domain.TimelineEntry{}, false, err
	}
	return timelineFromModel(model), true, nil
}

// ListTimelineEntries returns a user's entries in chronological order.
func (s *GormStore) ListTimelineEntries(userID string) ([]domain.TimelineEntry, error) {
	var models []TimelineEntryModel
	err := s.db.Where("user_id = ?", userID).
		Order("year ASC").
		Order("month ASC").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.TimelineEntry, 0, len(models))
	for _, m := range models {
		res = append(res, timelineFromModel(m))
	}
	return res, nil
}

// FindAutoEntryByStage returns the auto-generated entry for a stage, used to
// replace it when assembly re-runs.
func (s *GormStore) FindAutoEntryByStage(userID string, stage domain.Stage) (domain.TimelineEntry, bool, error) {
	var model TimelineEntryModel
	err := s.db.Where("user_id = ? AND stage = ? AND is_auto_generated = ?", userID, string(stage), true).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.TimelineEntry{}, false, nil
		}
		return domain.TimelineEntry{}, false, err
	}
	return timelineFromModel(model), true, nil
}

// DeleteTimelineEntry removes an entry; attached photos are detached, not
// deleted.
func (s *GormStore) DeleteTimelineEntry(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PhotoModel{}).
			Where("timeline_entry_id = ?", id).
			Update("timeline_entry_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&TimelineEntryModel{}, "id = ?", id).Error
	})
}

// SavePhoto stores or updates a photo record.
func (s *GormStore) SavePhoto(p domain.Photo) error {
	model := photoToModel(p)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timeline_entry_id", "attached_to_biography", "display_order", "updated_at"}),
	}).Create(&model).Error
}

// GetPhoto retrieves one photo record by ID.
func (s *GormStore) GetPhoto(id string) (domain.Photo, bool, error) {
	var model PhotoModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Photo{}, false, nil
		}
		return domain.Photo{}, false, err
	}
	return photoFromModel(model), true, nil
}

// ListPhotosByUser returns all of a user's photos ordered for display.
func (s *GormStore) ListPhotosByUser(userID string) ([]domain.Photo, error) {
	return s.listPhotos("user_id = ?", userID)
}

// ListPhotosByTimelineEntry returns photos linked to one timeline entry.
func (s *GormStore) ListPhotosByTimelineEntry(entryID string) ([]domain.Photo, error) {
	return s.listPhotos("timeline_entry_id = ?", entryID)
}

func (s *GormStore) listPhotos(cond string, args ...any) ([]domain.Photo, error) {
	var models []PhotoModel
	err := s.db.Where(cond, args...).
		Order("display_order ASC").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.Photo, 0, len(models))
	for _, m := range models {
		res = append(res, photoFromModel(m))
	}
	return res, nil
}

// RelinkPhotosToTimelineEntry replaces the set of photos linked to an entry.
// Prior links are cleared so re-running assembly does not accumulate stale
// attachments.
func (s *GormStore) RelinkPhotosToTimelineEntry(userID, entryID string, photoIDs []string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&PhotoModel{}).
			Where("user_id = ? AND timeline_entry_id = ?", userID, entryID).
			Update("timeline_entry_id", nil).Error; err != nil {
			return err
		}
		if len(photoIDs) == 0 {
			return nil
		}
		return tx.Model(&PhotoModel{}).
			Where("user_id = ? AND id IN ?", userID, photoIDs).
			Updates(map[string]any{
				"timeline_entry_id": entryID,
				"updated_at":        time.Now().UTC(),
			}).Error
	})
}

// DeletePhoto removes a photo record.
func (s *GormStore) DeletePhoto(id string) error {
	return s.db.Delete(&PhotoModel{}, "id = ?", id).Error
}

// SaveBiography creates or replaces the single biography row per user.
func (s *GormStore) SaveBiography(b domain.Biography) error {
	model := biographyToModel(b)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "summary", "updated_at"}),
	}).Create(&model).Error
}

// GetBiographyByUserID returns the user's biography if finalized.
func (s *GormStore) GetBiographyByUserID(userID string) (domain.Biography, bool, error) {
	var model BiographyModel
	if err := s.db.Where("user_id = ?", userID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Biography{}, false, nil
		}
		return domain.Biography{}, false, err
	}
	return biographyFromModel(model), true, nil
}

// CleanupUserData deletes all generated content for a user in one
// transaction and reports per-table counts.
func (s *GormStore) CleanupUserData(userID string) (domain.CleanupReport, error) {
	report := domain.CleanupReport{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&InterviewSessionModel{}, "user_id = ?", userID)
		if res.Error != nil {
			return res.Error
		}
		report.InterviewSessions = res.RowsAffected

		res = tx.Delete(&PhotoModel{}, "user_id = ?", userID)
		if res.Error != nil {
			return res.Error
		}
		report.Photos = res.RowsAffected

		res = tx.Delete(&TimelineEntryModel{}, "user_id = ?", userID)
		if res.Error != nil {
			return res.Error
		}
		report.TimelineEntries = res.RowsAffected

		res = tx.Delete(&BiographyModel{}, "user_id = ?", userID)
		if res.Error != nil {
			return res.Error
		}
		report.Biographies = res.RowsAffected
		return nil
	})
	if err != nil {
		return domain.CleanupReport{}, err
	}
	report.Sum()
	return report, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:            u.ID,
		Name:          u.Name,
		Age:           u.Age,
		BirthMonth:    u.BirthMonth,
		BirthDay:      u.BirthDay,
		BirthYear:     u.BirthYear,
		PINHash:       u.PINHash,
		Status:        string(u.Status),
		ProgressStage: string(u.ProgressStage),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	status := domain.UserStatus(m.Status)
	if status == "" {
		status = domain.StatusActive
	}
	return domain.User{
		ID:            m.ID,
		Name:          m.Name,
		Age:           m.Age,
		BirthMonth:    m.BirthMonth,
		BirthDay:      m.BirthDay,
		BirthYear:     m.BirthYear,
		PINHash:       m.PINHash,
		Status:        status,
		ProgressStage: domain.Stage(m.ProgressStage),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func sessionToModel(s domain.Session) SessionModel {
	return SessionModel{
		ID:        s.ID,
		UserID:    s.UserID,
		TokenHash: s.TokenHash,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}

func sessionFromModel(m SessionModel) domain.Session {
	return domain.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		TokenHash: m.TokenHash,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func interviewToModel(s domain.InterviewSession) (InterviewSessionModel, error) {
	conversation, err := json.Marshal(s.Conversation)
	if err != nil {
		return InterviewSessionModel{}, fmt.Errorf("encode conversation: %w", err)
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return InterviewSessionModel{}, fmt.Errorf("encode answers: %w", err)
	}
	return InterviewSessionModel{
		ID:              s.ID,
		UserID:          s.UserID,
		QuestionIndex:   s.QuestionIndex,
		Conversation:    conversation,
		Answers:         answers,
		ClientTimestamp: s.ClientTimestamp,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}, nil
}

func interviewFromModel(m InterviewSessionModel) (domain.InterviewSession, error) {
	sess := domain.InterviewSession{
		ID:              m.ID,
		UserID:          m.UserID,
		QuestionIndex:   m.QuestionIndex,
		Conversation:    []domain.ChatMessage{},
		Answers:         []domain.InterviewAnswer{},
		ClientTimestamp: m.ClientTimestamp,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if len(m.Conversation) > 0 {
		if err := json.Unmarshal(m.Conversation, &sess.Conversation); err != nil {
			return domain.InterviewSession{}, fmt.Errorf("%w: conversation: %v", ErrCorruptSession, err)
		}
	}
	if len(m.Answers) > 0 {
		if err := json.Unmarshal(m.Answers, &sess.Answers); err != nil {
			return domain.InterviewSession{}, fmt.Errorf("%w: answers: %v", ErrCorruptSession, err)
		}
	}
	return sess, nil
}

func timelineToModel(e domain.TimelineEntry) TimelineEntryModel {
	return TimelineEntryModel{
		ID:               e.ID,
		UserID:           e.UserID,
		Year:             e.Year,
		Month:            e.Month,
		Title:            e.Title,
		Description:      e.Description,
		CorrectedContent: e.CorrectedContent,
		Stage:            string(e.Stage),
		IsAutoGenerated:  e.IsAutoGenerated,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func timelineFromModel(m TimelineEntryModel) domain.TimelineEntry {
	return domain.TimelineEntry{
		ID:               m.ID,
		UserID:           m.UserID,
		Year:             m.Year,
		Month:            m.Month,
		Title:            m.Title,
		Description:      m.Description,
		CorrectedContent: m.CorrectedContent,
		Stage:            domain.Stage(m.Stage),
		IsAutoGenerated:  m.IsAutoGenerated,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func photoToModel(p domain.Photo) PhotoModel {
	var entryID *string
	if strings.TrimSpace(p.TimelineEntryID) != "" {
		value := strings.TrimSpace(p.TimelineEntryID)
		entryID = &value
	}
	return PhotoModel{
		ID:                  p.ID,
		UserID:              p.UserID,
		Filename:            p.Filename,
		OriginalFilename:    p.OriginalFilename,
		ContentType:         p.ContentType,
		SizeBytes:           p.SizeBytes,
		TimelineEntryID:     entryID,
		AttachedToBiography: p.AttachedToBiography,
		DisplayOrder:        p.DisplayOrder,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

func photoFromModel(m PhotoModel) domain.Photo {
	entryID := ""
	if m.TimelineEntryID != nil {
		entryID = strings.TrimSpace(*m.TimelineEntryID)
	}
	return domain.Photo{
		ID:                  m.ID,
		UserID:              m.UserID,
		Filename:            m.Filename,
		OriginalFilename:    m.OriginalFilename,
		ContentType:         m.ContentType,
		SizeBytes:           m.SizeBytes,
		TimelineEntryID:     entryID,
		AttachedToBiography: m.AttachedToBiography,
		DisplayOrder:        m.DisplayOrder,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func biographyToModel(b domain.Biography) BiographyModel {
	return BiographyModel{
		ID:        b.ID,
		UserID:    b.UserID,
		Content:   b.Content,
		Summary:   b.Summary,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func biographyFromModel(m BiographyModel) domain.Biography {
	return domain.Biography{
		ID:        m.ID,
		UserID:    m.UserID,
		Content:   m.Content,
		Summary:   m.Summary,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
