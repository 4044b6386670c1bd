package app

import "errors"

var (
	// ErrInvalidCredentials deliberately hides which part of the login failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityTaken      = errors.New("a user with this name and birthday already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInterviewNotFound  = errors.New("interview session not found")
	ErrBiographyNotFound  = errors.New("biography not found")
	ErrEntryNotFound      = errors.New("timeline entry not found")
	ErrPhotoNotFound      = errors.New("photo not found")
	ErrAIUnavailable      = errors.New("ai provider is not configured")
	ErrValidation         = errors.New("validation failed")
)
