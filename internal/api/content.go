package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/campus-portal/internal/audit"
	"github.com/nerrad567/campus-portal/internal/auth"
	"github.com/nerrad567/campus-portal/internal/event"
	"github.com/nerrad567/campus-portal/internal/forum"
	"github.com/nerrad567/campus-portal/internal/infrastructure/mqtt"
	"github.com/nerrad567/campus-portal/internal/material"
	"github.com/nerrad567/campus-portal/internal/notice"
)

// WebSocket channels for newly created content.
const (
	ChannelMaterialCreated   = "material.created"
	ChannelEventCreated      = "event.created"
	ChannelNoticeCreated     = "notice.created"
	ChannelForumPostCreated  = "forum.post_created"
	ChannelForumReplyCreated = "forum.reply_created"
)

// callerRef returns the caller as an author reference.
func callerRef(r *http.Request) auth.UserRef {
	if u, ok := userFromContext(r.Context()); ok {
		return auth.UserRef{ID: u.ID, Name: u.Name}
	}
	id, _ := auth.IdentityFromContext(r.Context())
	return auth.UserRef{ID: id.ID}
}

// announce publishes v over MQTT if a broker is connected. Failures are logged.
func (s *Server) announce(kind string, v any) {
	if s.announcer == nil || !s.announcer.IsConnected() {
		return
	}
	if err := s.announcer.Announce(kind, v); err != nil {
		s.logger.Warn("announcement publish failed", "kind", kind, "error", err)
	}
}

// ─── Materials ─────────────────────────────────────────────────────

// handleListMaterials returns materials, newest first.
// Optional query filters: subject, department, type, year.
func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := material.Filter{
		Subject:    q.Get("subject"),
		Department: q.Get("department"),
	}
	if v := q.Get("type"); v != "" {
		t, err := material.ParseType(v)
		if err != nil {
			writeValidationError(w, validationMessage(err, material.ErrInvalidMaterial))
			return
		}
		filter.Type = t
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeValidationError(w, "Year must be a number")
			return
		}
		filter.Year = year
	}

	list, err := s.materials.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list materials", "error", err)
		writeInternalError(w, "Error fetching materials")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateMaterial records a new material uploaded by the caller.
func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var in material.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	m, err := in.Validate()
	if err != nil {
		writeValidationError(w, validationMessage(err, material.ErrInvalidMaterial))
		return
	}

	m.Uploader = callerRef(r)
	m.UploaderID = m.Uploader.ID
	if err := s.materials.Create(r.Context(), m); err != nil {
		s.logger.Error("failed to create material", "error", err)
		writeInternalError(w, "Error uploading material")
		return
	}

	s.auditLog(audit.ActionCreate, "material", m.ID, m.UploaderID, map[string]any{"title": m.Title})
	s.hub.Broadcast(ChannelMaterialCreated, m)
	writeJSON(w, http.StatusCreated, m)
}

// handleDownloadMaterial increments the download counter and returns the material.
func (s *Server) handleDownloadMaterial(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.materials.IncrementDownloads(r.Context(), id)
	if err != nil {
		if errors.Is(err, material.ErrMaterialNotFound) {
			writeNotFound(w, "Material not found")
			return
		}
		s.logger.Error("failed to record download", "material_id", id, "error", err)
		writeInternalError(w, "Error updating download count")
		return
	}
	s.auditLog(audit.ActionDownload, "material", m.ID, "", map[string]any{"downloads": m.Downloads})
	writeJSON(w, http.StatusOK, m)
}

// ─── Events ────────────────────────────────────────────────────────

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := s.events.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list events", "error", err)
		writeInternalError(w, "Error fetching events")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, event.ErrEventNotFound) {
			writeNotFound(w, "Event not found")
			return
		}
		s.logger.Error("failed to get event", "error", err)
		writeInternalError(w, "Error fetching event")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in event.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	e, err := in.Validate()
	if err != nil {
		writeValidationError(w, validationMessage(err, event.ErrInvalidEvent))
		return
	}

	e.CreatedBy = callerRef(r)
	e.CreatedByID = e.CreatedBy.ID
	if err := s.events.Create(r.Context(), e); err != nil {
		s.logger.Error("failed to create event", "error", err)
		writeInternalError(w, "Error creating event")
		return
	}

	s.auditLog(audit.ActionCreate, "event", e.ID, e.CreatedByID, map[string]any{"title": e.Title})
	s.hub.Broadcast(ChannelEventCreated, e)
	s.announce(mqtt.KindEvent, e)
	writeJSON(w, http.StatusCreated, e)
}

// ─── Notices ───────────────────────────────────────────────────────

func (s *Server) handleListNotices(w http.ResponseWriter, r *http.Request) {
	list, err := s.notices.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list notices", "error", err)
		writeInternalError(w, "Error fetching notices")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleCreateNotice publishes a notice. Gated to FACULTY and ADMIN by the router.
func (s *Server) handleCreateNotice(w http.ResponseWriter, r *http.Request) {
	var in notice.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	n, err := in.Validate()
	if err != nil {
		writeValidationError(w, validationMessage(err, notice.ErrInvalidNotice))
		return
	}

	n.CreatedBy = callerRef(r)
	n.CreatedByID = n.CreatedBy.ID
	if err := s.notices.Create(r.Context(), n); err != nil {
		s.logger.Error("failed to create notice", "error", err)
		writeInternalError(w, "Error creating notice")
		return
	}

	s.auditLog(audit.ActionCreate, "notice", n.ID, n.CreatedByID, map[string]any{
		"title":    n.Title,
		"priority": string(n.Priority),
	})
	s.hub.Broadcast(ChannelNoticeCreated, n)
	s.announce(mqtt.KindNotice, n)
	writeJSON(w, http.StatusCreated, n)
}

// ─── Forum ─────────────────────────────────────────────────────────

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := s.forum.ListPosts(r.Context())
	if err != nil {
		s.logger.Error("failed to list posts", "error", err)
		writeInternalError(w, "Error fetching posts")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	p, err := s.forum.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, forum.ErrPostNotFound) {
			writeNotFound(w, "Post not found")
			return
		}
		s.logger.Error("failed to get post", "error", err)
		writeInternalError(w, "Error fetching post")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in forum.CreatePostInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	p, err := in.Validate()
	if err != nil {
		writeValidationError(w, validationMessage(err, forum.ErrInvalidPost))
		return
	}

	p.Author = callerRef(r)
	p.AuthorID = p.Author.ID
	if err := s.forum.CreatePost(r.Context(), p); err != nil {
		s.logger.Error("failed to create post", "error", err)
		writeInternalError(w, "Error creating post")
		return
	}

	s.auditLog(audit.ActionCreate, "forum_post", p.ID, p.AuthorID, map[string]any{"title": p.Title})
	s.hub.Broadcast(ChannelForumPostCreated, p)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	var in forum.CreateReplyInput
	if err := decodeJSON(r, &in); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	reply, err := in.Validate()
	if err != nil {
		writeValidationError(w, validationMessage(err, forum.ErrInvalidPost))
		return
	}

	reply.PostID = chi.URLParam(r, "id")
	reply.Author = callerRef(r)
	reply.AuthorID = reply.Author.ID
	if err := s.forum.CreateReply(r.Context(), reply); err != nil {
		if errors.Is(err, forum.ErrPostNotFound) {
			writeNotFound(w, "Post not found")
			return
		}
		s.logger.Error("failed to create reply", "error", err)
		writeInternalError(w, "Error creating reply")
		return
	}

	s.auditLog(audit.ActionCreate, "forum_reply", reply.ID, reply.AuthorID, map[string]any{"postId": reply.PostID})
	s.hub.Broadcast(ChannelForumReplyCreated, reply)
	writeJSON(w, http.StatusCreated, reply)
}
