package auth

import (
	"errors"
	"strings"
	"time"
)

// Role represents an authorisation tier in the portal.
type Role string

const (
	// RoleStudent can browse everything and contribute materials, events and forum posts.
	RoleStudent Role = "STUDENT"

	// RoleFaculty has student permissions plus publishing notices.
	RoleFaculty Role = "FACULTY"

	// RoleAdmin has every permission, including user and audit administration.
	RoleAdmin Role = "ADMIN"
)

// ValidRoles is the set of roles a user account may hold.
var ValidRoles = []Role{RoleStudent, RoleFaculty, RoleAdmin}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// ParseRole converts user input to a Role, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !IsValidRole(r) {
		return "", ErrInvalidRole
	}
	return r, nil
}

// NormaliseEmail trims and lower-cases an email address for storage and lookup.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User represents a portal account. The role is fixed at creation.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUser is the client-facing view of a User.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// UserSummary is one row of the admin account listing.
type UserSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary returns the admin listing view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Public returns the client-facing view of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// UserRef is the compact author/owner view embedded in portal resources.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Identity returns the request identity for u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleMismatch       = errors.New("invalid role for this user")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("user with this email already exists")
	ErrInvalidRole        = errors.New("invalid role")
	ErrRoleNotAllowed     = errors.New("role not open for registration")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrPasswordTooLong    = errors.New("password exceeds 72 bytes")
)
