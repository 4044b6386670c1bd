package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidPIN is returned when a PIN does not match the required shape.
var ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")

// ValidatePIN enforces the 4-digit PIN shape used as the account secret.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// HashPIN returns a bcrypt hash of the PIN.
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// CheckPIN validates a PIN against a stored bcrypt hash.
func CheckPIN(pin, stored string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pin)) == nil
}
