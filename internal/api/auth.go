package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/campus-portal/internal/audit"
	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/infrastructure/influxdb"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// sessionResponse is returned by register and login.
type sessionResponse struct {
	User  auth.PublicUser `json:"user"`
	Token string          `json:"token"`
}

// handleRegister creates an account and returns 201 {user, token}.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sess, err := s.auth.Register(r.Context(), in)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			s.recordAuth(influxdb.AuthEvent{Action: "register", Outcome: "validation_error"})
			writeValidationError(w, verr.Message)
		case errors.Is(err, auth.ErrEmailExists):
			s.recordAuth(influxdb.AuthEvent{Action: "register", Outcome: "email_exists"})
			writeError(w, http.StatusBadRequest, ErrCodeConflict, msgEmailExists)
		case errors.Is(err, auth.ErrRoleNotAllowed):
			s.recordAuth(influxdb.AuthEvent{Action: "register", Outcome: "role_not_allowed"})
			writeValidationError(w, msgRoleNotAllowed)
		default:
			s.logger.Error("registration failed", "error", err)
			writeInternalError(w, "Registration failed")
		}
		return
	}

	s.recordAuth(influxdb.AuthEvent{Action: "register", Outcome: "success", Role: string(sess.User.Role)})
	s.auditLog(audit.ActionRegister, "user", sess.User.ID, sess.User.ID, map[string]any{
		"role": string(sess.User.Role),
	})
	writeJSON(w, http.StatusCreated, sessionResponse{User: sess.User.Public(), Token: sess.Token})
}

// handleLogin checks credentials and returns 200 {user, token}.
// Every credential failure is a 400, as the web client expects.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sess, err := s.auth.Login(r.Context(), in)
	if err != nil {
		var verr *auth.ValidationError
		switch {
		case errors.As(err, &verr):
			s.recordAuth(influxdb.AuthEvent{Action: "login", Outcome: "validation_error"})
			writeValidationError(w, verr.Message)
		case errors.Is(err, auth.ErrRoleMismatch):
			s.loginFailed(in.Email, "role_mismatch")
			writeBadRequest(w, msgInvalidRole)
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.loginFailed(in.Email, "invalid_credentials")
			writeBadRequest(w, msgInvalidCreds)
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w, "Login failed")
		}
		return
	}

	s.recordAuth(influxdb.AuthEvent{Action: "login", Outcome: "success", Role: string(sess.User.Role)})
	s.auditLog(audit.ActionLogin, "user", sess.User.ID, sess.User.ID, nil)
	writeJSON(w, http.StatusOK, sessionResponse{User: sess.User.Public(), Token: sess.Token})
}

func (s *Server) loginFailed(email, reason string) {
	s.recordAuth(influxdb.AuthEvent{Action: "login", Outcome: reason})
	s.auditLog(audit.ActionLoginFailed, "user", "", "", map[string]any{
		"email":  auth.NormaliseEmail(email),
		"reason": reason,
	})
}

// handleMe returns the live user behind the bearer token.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgAuthRequired)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user.Public(),
		"permissions": auth.PermissionsForRole(user.Role),
	})
}

// handleWSTicket issues a single-use WebSocket ticket bound to the caller.
// The client passes it as ?ticket= so the bearer token stays out of URLs.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	ticket := s.tickets.issue(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":    ticket,
		"expiresIn": int(ticketTTL.Seconds()),
	})
}

// ticketStore holds pending WebSocket tickets. Tickets are single-use.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
	now     func() time.Time
}

type ticketEntry struct {
	identity  auth.Identity
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry), now: time.Now}
}

func (t *ticketStore) issue(id auth.Identity) string {
	ticket := generateTicket()
	t.mu.Lock()
	t.tickets[ticket] = ticketEntry{identity: id, expiresAt: t.now().Add(ticketTTL)}
	t.mu.Unlock()
	return ticket
}

// consume removes ticket and returns its identity if it had not expired.
func (t *ticketStore) consume(ticket string) (auth.Identity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.tickets[ticket]
	if !ok {
		return auth.Identity{}, false
	}
	delete(t.tickets, ticket)
	if !t.now().Before(entry.expiresAt) {
		return auth.Identity{}, false
	}
	return entry.identity, true
}

func (t *ticketStore) cleanExpired() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for ticket, entry := range t.tickets {
		if !now.Before(entry.expiresAt) {
			delete(t.tickets, ticket)
		}
	}
}

func (t *ticketStore) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tickets)
}

// cleanLoop runs cleanExpired periodically until ctx is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.cleanExpired()
		}
	}
}

// ticketBytes is the number of random bytes used for WebSocket tickets.
const ticketBytes = 32

// generateTicket creates a cryptographically random ticket string.
func generateTicket() string {
	b := make([]byte, ticketBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}
