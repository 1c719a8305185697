package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/campus-portal/internal/audit"
)

// auditChanSize bounds the audit queue. Requests never wait on the audit
// store; entries past this are dropped with a warning.
const auditChanSize = 256

// auditWriteTimeout bounds a single audit insert.
const auditWriteTimeout = 5 * time.Second

// auditLog queues an entry for the background writer.
func (s *Server) auditLog(action, entityType, entityID, userID string, details map[string]any) {
	if s.auditCh == nil {
		return
	}
	e := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     userID,
		Source:     "api",
		Details:    details,
	}
	select {
	case s.auditCh <- e:
	default:
		s.logger.Warn("audit queue full, entry dropped", "action", action, "entity_type", entityType, "entity_id", entityID)
	}
}

// drainAuditLog persists queued entries one at a time. On cancellation it
// writes whatever is already queued and returns.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case e := <-s.auditCh:
			s.persistAudit(e)
			continue
		case <-ctx.Done():
		}
		for len(s.auditCh) > 0 {
			s.persistAudit(<-s.auditCh)
		}
		return
	}
}

// persistAudit uses its own deadline so queued entries still land after
// the server context is cancelled.
func (s *Server) persistAudit(e *audit.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()
	if err := s.auditRepo.Create(ctx, e); err != nil {
		s.logger.Error("audit write failed", "action", e.Action, "entity_type", e.EntityType, "error", err)
	}
}

// handleListAuditLogs serves GET /api/admin/audit.
//
// Filters: action, entityType, entityId, userId. Paging: limit (default 50,
// capped at 200) and offset. Non-numeric paging values are rejected.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeInternalError(w, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		UserID:     q.Get("userId"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	page, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit log failed", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
