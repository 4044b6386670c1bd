package auth

import (
	"errors"
	"testing"
)

func TestValidatePIN(t *testing.T) {
	valid := []string{"0000", "1234", "9999"}
	for _, pin := range valid {
		if err := ValidatePIN(pin); err != nil {
			t.Fatalf("pin %q rejected: %v", pin, err)
		}
	}
	invalid := []string{"", "123", "12345", "12a4", "12.4", " 123", "１２３４"}
	for _, pin := range invalid {
		if err := ValidatePIN(pin); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("pin %q: err = %v, want ErrInvalidPIN", pin, err)
		}
	}
}

func TestHashAndCheckPIN(t *testing.T) {
	hash, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "1234" {
		t.Fatalf("pin stored in plaintext")
	}
	if !CheckPIN("1234", hash) {
		t.Fatalf("correct pin rejected")
	}
	if CheckPIN("4321", hash) {
		t.Fatalf("wrong pin accepted")
	}

	// Hashes are salted; two hashes of the same PIN differ.
	hash2, err := HashPIN("1234")
	if err != nil {
		t.Fatalf("second hash: %v", err)
	}
	if hash == hash2 {
		t.Fatalf("expected salted hashes to differ")
	}
}
