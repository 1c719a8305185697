package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// RegisterInput is a self-service sign-up request.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginInput is a credential check request. Role must match the account.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Session is the outcome of a successful register or login.
type Session struct {
	User  *User  `json:"-"`
	Token string `json:"token"`
}

// ServiceOptions tunes a Service.
type ServiceOptions struct {
	// RegisterRoles limits which roles self-service sign-up may choose.
	// Empty means all of ValidRoles.
	RegisterRoles []Role

	// LookupTimeout bounds the credential store lookup in Resolve.
	// Zero relies on the caller's context alone.
	LookupTimeout time.Duration
}

// Service ties the credential store, password hasher and token issuer together.
type Service struct {
	users         UserRepository
	tokens        *TokenIssuer
	registerRoles map[Role]bool
	lookupTimeout time.Duration
}

// NewService creates an auth service.
func NewService(users UserRepository, tokens *TokenIssuer, opts ServiceOptions) *Service {
	roles := opts.RegisterRoles
	if len(roles) == 0 {
		roles = ValidRoles
	}
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return &Service{
		users:         users,
		tokens:        tokens,
		registerRoles: allowed,
		lookupTimeout: opts.LookupTimeout,
	}
}

// Tokens returns the issuer used by the service.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an account and issues its first token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := NormaliseEmail(in.Email)
	if email == "" {
		return nil, invalid("email", "Email is required")
	}
	if !strings.Contains(email, "@") {
		return nil, invalid("email", "Email is not valid")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordBytes {
		return nil, invalid("password", fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes))
	}
	if strings.TrimSpace(in.Role) == "" {
		return nil, invalid("role", "Role is required")
	}
	role, err := ParseRole(in.Role)
	if err != nil {
		return nil, invalid("role", "Role must be one of STUDENT, FACULTY, ADMIN")
	}
	if !s.registerRoles[role] {
		return nil, ErrRoleNotAllowed
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.session(user)
}

// Login checks credentials and issues a token.
//
// An unknown email and a wrong password both return ErrInvalidCredentials.
// A known email with the wrong role returns ErrRoleMismatch before the
// password is checked.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" || strings.TrimSpace(in.Role) == "" {
		return nil, invalid("", "Email, password and role are required")
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if Role(strings.ToUpper(strings.TrimSpace(in.Role))) != user.Role {
		return nil, ErrRoleMismatch
	}

	if !VerifyPassword(in.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

// Resolve verifies a bearer token and loads the live user behind it.
//
// Token failures wrap ErrTokenExpired or ErrTokenInvalid. A token for a
// deleted account returns ErrUserNotFound. Store failures are returned as-is.
func (s *Service) Resolve(ctx context.Context, token string) (*User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolving token user: %w", err)
	}
	return user, nil
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.tokens.IssueFor(u)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}
