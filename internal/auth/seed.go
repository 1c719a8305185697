package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed admin password.
const seedPasswordBytes = 16

// SeedAdmin creates an ADMIN account on first boot when email is set and
// the store has no users. The generated password is returned, never logged;
// an empty string means seeding was skipped.
func SeedAdmin(ctx context.Context, users UserRepository, email, name string, logger *slog.Logger) (string, error) {
	if NormaliseEmail(email) == "" {
		return "", nil
	}

	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}
	password := hex.EncodeToString(passwordBytes)

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	if name == "" {
		name = "Portal Administrator"
	}
	admin := &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	logger.Warn("seed admin account created",
		"email", admin.Email,
		"action_required", "store the one-time password and rotate it",
	)

	return password, nil
}
