package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Child tables reference users with
// ON DELETE CASCADE so a hard user delete removes every dependent row.
type UserModel struct {
	ID            string `gorm:"primaryKey"`
	Name          string `gorm:"not null;uniqueIndex:idx_users_identity,priority:1"`
	Age           int    `gorm:"not null"`
	BirthMonth    int    `gorm:"not null;uniqueIndex:idx_users_identity,priority:2"`
	BirthDay      int    `gorm:"not null;uniqueIndex:idx_users_identity,priority:3"`
	BirthYear     int    `gorm:"not null"`
	PINHash       string `gorm:"not null"`
	Status        string `gorm:"not null"`
	ProgressStage string
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time
}

type SessionModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex"`
	User      UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	TokenHash string    `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// InterviewSessionModel is scratch state for an in-progress interview.
// Conversation and answers are opaque JSON blobs replaced wholesale on every
// accepted save.
type InterviewSessionModel struct {
	ID              string         `gorm:"primaryKey"`
	UserID          string         `gorm:"not null;uniqueIndex"`
	User            UserModel      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	QuestionIndex   int            `gorm:"not null"`
	Conversation    datatypes.JSON ``
	Answers         datatypes.JSON ``
	ClientTimestamp int64          `gorm:"not null"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null;index"`
}

type TimelineEntryModel struct {
	ID               string    `gorm:"primaryKey"`
	UserID           string    `gorm:"not null;index"`
	User             UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Year             int       `gorm:"not null"`
	Month            int
	Title            string    `gorm:"not null"`
	Description      string    `gorm:"type:text"`
	CorrectedContent string    `gorm:"type:text"`
	Stage            string    `gorm:"index"`
	IsAutoGenerated  bool      `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

type PhotoModel struct {
	ID                  string    `gorm:"primaryKey"`
	UserID              string    `gorm:"not null;index"`
	User                UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Filename            string    `gorm:"not null;uniqueIndex"`
	OriginalFilename    string
	ContentType         string
	SizeBytes           int64
	TimelineEntryID     *string             `gorm:"index"`
	TimelineEntry       *TimelineEntryModel `gorm:"foreignKey:TimelineEntryID;constraint:OnDelete:SET NULL"`
	AttachedToBiography bool
	DisplayOrder        int
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time
}

type BiographyModel struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"not null;uniqueIndex"`
	User      UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Content   string    `gorm:"type:text;not null"`
	Summary   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
