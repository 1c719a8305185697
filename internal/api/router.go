package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/campus-portal/internal/auth"
)

// healthTimeout bounds the database ping in /health.
const healthTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimitMiddleware("auth.register")).Post("/register", s.handleRegister)
			r.With(s.rateLimitMiddleware("auth.login")).Post("/login", s.handleLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/me", s.handleMe)
				r.Post("/ws-ticket", s.handleWSTicket)
			})
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Route("/materials", func(r chi.Router) {
			r.Get("/", s.handleListMaterials)
			r.Put("/{id}/download", s.handleDownloadMaterial)
			r.With(s.authMiddleware, s.requirePermission(auth.PermMaterialCreate)).Post("/", s.handleCreateMaterial)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", s.handleListEvents)
			r.Get("/{id}", s.handleGetEvent)
			r.With(s.authMiddleware, s.requirePermission(auth.PermEventCreate)).Post("/", s.handleCreateEvent)
		})

		r.Route("/notices", func(r chi.Router) {
			r.Get("/", s.handleListNotices)
			r.With(s.authMiddleware, s.requirePermission(auth.PermNoticeCreate)).Post("/", s.handleCreateNotice)
		})

		r.Route("/forum", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.Get("/{id}", s.handleGetPost)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware, s.requirePermission(auth.PermForumPost))
				r.Post("/", s.handleCreatePost)
				r.Post("/{id}/reply", s.handleCreateReply)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.With(s.requirePermission(auth.PermUserList)).Get("/users", s.handleListUsers)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth returns the server health status. A failing database ping
// reports 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("health check: database unreachable", "error", err)
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}
