package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jibunshi/pkg/auth"
	"jibunshi/pkg/domain"
)

// RegisterInput carries the fields needed to create a user.
type RegisterInput struct {
	Name       string
	Age        int
	BirthMonth int
	BirthDay   int
	PIN        string
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if in.Age < 0 || in.Age > 130 {
		return fmt.Errorf("%w: age out of range", ErrValidation)
	}
	if in.BirthMonth < 1 || in.BirthMonth > 12 {
		return fmt.Errorf("%w: birth month out of range", ErrValidation)
	}
	if in.BirthDay < 1 || in.BirthDay > 31 {
		return fmt.Errorf("%w: birth day out of range", ErrValidation)
	}
	return nil
}

// Register creates a new user. The (name, birth month, birth day) triple must
// be unique; the birth year is derived from the stated age.
func (a *App) Register(in RegisterInput) (domain.User, error) {
	if err := in.validate(); err != nil {
		return domain.User{}, err
	}
	if err := auth.ValidatePIN(in.PIN); err != nil {
		return domain.User{}, err
	}
	name := strings.TrimSpace(in.Name)
	taken, err := a.store.HasUserIdentity(name, in.BirthMonth, in.BirthDay)
	if err != nil {
		return domain.User{}, fmt.Errorf("check identity: %w", err)
	}
	if taken {
		return domain.User{}, ErrIdentityTaken
	}
	pinHash, err := auth.HashPIN(in.PIN)
	if err != nil {
		return domain.User{}, err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:         uuid.NewString(),
		Name:       name,
		Age:        in.Age,
		BirthMonth: in.BirthMonth,
		BirthDay:   in.BirthDay,
		BirthYear:  now.Year() - in.Age,
		PINHash:    pinHash,
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// CheckNameResult reports how many users share a name. UserID is set only
// when the name is unambiguous.
type CheckNameResult struct {
	Count  int
	UserID string
}

// CheckName is the first login step: it counts users with the given name and
// returns the sole candidate's id when exactly one exists.
func (a *App) CheckName(name string) (CheckNameResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return CheckNameResult{}, fmt.Errorf("%w: name is required", ErrValidation)
	}
	users, err := a.store.FindUsersByName(name)
	if err != nil {
		return CheckNameResult{}, fmt.Errorf("find users: %w", err)
	}
	result := CheckNameResult{Count: len(users)}
	if len(users) == 1 {
		result.UserID = users[0].ID
	}
	return result, nil
}

// CheckBirthday disambiguates a shared name by exact birth month and day.
func (a *App) CheckBirthday(name string, month, day int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrValidation)
	}
	user, found, err := a.store.FindUserByBirthday(name, month, day)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if !found {
		return "", ErrUserNotFound
	}
	return user.ID, nil
}

// LoginResult is a successful PIN verification outcome.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// VerifyPIN completes login. Failures are uniformly ErrInvalidCredentials so
// callers cannot probe which part was wrong.
func (a *App) VerifyPIN(userID, pin string) (LoginResult, error) {
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("get user: %w", err)
	}
	if !found || user.Status != domain.StatusActive {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !auth.CheckPIN(pin, user.PINHash) {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := time.Now().UTC()
	token, expiresAt, err := a.tokens.Issue(user.ID, user.Name, now)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}
	session := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := a.store.ReplaceSession(session); err != nil {
		return LoginResult{}, fmt.Errorf("store session: %w", err)
	}
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// VerifyToken authenticates a bearer token: the JWT signature and expiry must
// check out, and the token must match the user's current server-side session.
func (a *App) VerifyToken(token string) (domain.User, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	session, found, err := a.store.GetSessionByUserID(claims.Subject)
	if err != nil {
		return domain.User{}, fmt.Errorf("get session: %w", err)
	}
	if !found || session.TokenHash != auth.HashToken(token) {
		return domain.User{}, ErrInvalidCredentials
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return domain.User{}, ErrInvalidCredentials
	}
	user, found, err := a.store.GetUserByID(claims.Subject)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !found || user.Status != domain.StatusActive {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser returns the user by id.
func (a *App) GetUser(userID string) (domain.User, error) {
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	if !found {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// DeleteUser removes the account and all dependent data, including stored
// photo files when a photo backend is configured.
func (a *App) DeleteUser(userID string) error {
	a.deleteStoredPhotoFiles(userID)
	if err := a.store.DeleteUser(userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := a.store.DeleteSessionByUserID(userID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
