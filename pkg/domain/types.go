package domain

import "time"

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

// Stage labels partition a life narrative into phases. They group interview
// questions and timeline entries.
type Stage string

const (
	StageBirth      Stage = "birth"
	StageChildhood  Stage = "childhood"
	StageSchool     Stage = "school"
	StageWork       Stage = "work"
	StageMemory     Stage = "memory"
	StageRetirement Stage = "retirement"
)

// KnownStage reports whether s is one of the defined narrative stages.
func KnownStage(s Stage) bool {
	switch s {
	case StageBirth, StageChildhood, StageSchool, StageWork, StageMemory, StageRetirement:
		return true
	}
	return false
}

// User is identified by the (Name, BirthMonth, BirthDay) triple; there is no
// email or phone number. BirthYear is derived from Age at registration time.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Age           int        `json:"age"`
	BirthMonth    int        `json:"birthMonth"`
	BirthDay      int        `json:"birthDay"`
	BirthYear     int        `json:"birthYear"`
	PINHash       string     `json:"-"`
	Status        UserStatus `json:"status"`
	ProgressStage Stage      `json:"progressStage"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Session is the server-side login session: a hash of the issued token plus
// an absolute expiry. One active session per user; superseded on each login.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is one role-tagged message in the interview transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// InterviewAnswer is one answered question with optional photo references.
type InterviewAnswer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	PhotoIDs []string `json:"photoIds,omitempty"`
}

// InterviewSession is the single mutable scratch record holding in-progress
// interview state for a user. Conversation and Answers are opaque ordered
// structures to the save/load layer: they are replaced wholesale, never
// merged element by element.
type InterviewSession struct {
	ID              string            `json:"id"`
	UserID          string            `json:"userId"`
	QuestionIndex   int               `json:"questionIndex"`
	Conversation    []ChatMessage     `json:"conversation"`
	Answers         []InterviewAnswer `json:"answers"`
	ClientTimestamp int64             `json:"timestamp"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// TimelineEntry is one discrete life-event record, either manually entered
// or produced by the biography assembly step.
type TimelineEntry struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	Year             int       `json:"year"`
	Month            int       `json:"month"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	CorrectedContent string    `json:"correctedContent,omitempty"`
	Stage            Stage     `json:"stage,omitempty"`
	IsAutoGenerated  bool      `json:"isAutoGenerated"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Photo is an uploaded image bound to a timeline entry or to the biography.
type Photo struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	Filename             string    `json:"filename"`
	OriginalFilename     string    `json:"originalFilename"`
	ContentType          string    `json:"contentType"`
	SizeBytes            int64     `json:"sizeBytes"`
	TimelineEntryID      string    `json:"timelineEntryId,omitempty"`
	AttachedToBiography  bool      `json:"attachedToBiography"`
	DisplayOrder         int       `json:"displayOrder"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// Biography is the single finalized narrative per user, distinct from the
// many timeline entries.
type Biography struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CleanupReport lists per-table delete counts for a cleanup run.
type CleanupReport struct {
	InterviewSessions int64 `json:"interviewSessions"`
	TimelineEntries   int64 `json:"timelineEntries"`
	Photos            int64 `json:"photos"`
	Biographies       int64 `json:"biographies"`
	Total             int64 `json:"total"`
}

// Sum recomputes Total from the per-table counts.
func (r *CleanupReport) Sum() int64 {
	r.Total = r.InterviewSessions + r.TimelineEntries + r.Photos + r.Biographies
	return r.Total
}
