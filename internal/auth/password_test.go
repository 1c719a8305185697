package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !VerifyPassword("secret1", hash) {
		t.Error("VerifyPassword() should return true for correct password")
	}
	if VerifyPassword("secret2", hash) {
		t.Error("VerifyPassword() should return false for wrong password")
	}
}

func TestHashPassword_Cost(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != PasswordCost {
		t.Errorf("cost = %d, want %d", cost, PasswordCost)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash should use the $2a$ prefix, got %q", hash[:4])
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	hash1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	hash2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if hash1 == hash2 {
		t.Error("two hashes of the same password should have different salts")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	_, err := HashPassword(strings.Repeat("a", MaxPasswordBytes+1))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("HashPassword() error = %v, want ErrPasswordTooLong", err)
	}

	if _, err := HashPassword(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Errorf("HashPassword() at the limit error = %v", err)
	}
}

func TestVerifyPassword_MalformedDigest(t *testing.T) {
	tests := []string{
		"",
		"not-a-hash",
		"$2a$10$short",
		"$argon2id$v=19$m=65536,t=3,p=1$c2FsdA$aGFzaA",
	}

	for _, digest := range tests {
		if VerifyPassword("anything", digest) {
			t.Errorf("VerifyPassword() = true for malformed digest %q", digest)
		}
	}
}
