package api

import (
	"net/http"

	"github.com/nerrad567/campus-portal/internal/auth"
)

// handleListUsers returns every account as a bare array, oldest first.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}
	out := make([]auth.UserSummary, len(users))
	for i := range users {
		out[i] = users[i].Summary()
	}
	writeJSON(w, http.StatusOK, out)
}
