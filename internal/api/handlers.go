package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"safe-apple-bridge/internal/apps"
	"safe-apple-bridge/internal/executor"
	"safe-apple-bridge/internal/security"
	"safe-apple-bridge/internal/storage"
)

type Handlers struct {
	mail      *apps.Mail
	messages  *apps.Messages
	contacts  *apps.Contacts
	reminders *apps.Reminders
	audit     *security.AuditLogger
	db        *storage.DB
}

func NewHandlers(mail *apps.Mail, messages *apps.Messages, contacts *apps.Contacts, reminders *apps.Reminders, audit *security.AuditLogger, db *storage.DB) *Handlers {
	return &Handlers{
		mail:      mail,
		messages:  messages,
		contacts:  contacts,
		reminders: reminders,
		audit:     audit,
		db:        db,
	}
}

func (h *Handlers) HandleMailSearch(w http.ResponseWriter, r *http.Request) {
	var req MailSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	writeOutcome(w, r, h.mail.Search(r.Context(), req.Query, req.Mailbox, req.Limit))
}

func (h *Handlers) HandleMailUnread(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r)
	writeOutcome(w, r, h.mail.Unread(r.Context(), limit))
}

func (h *Handlers) HandleMailSend(w http.ResponseWriter, r *http.Request) {
	var req MailSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	writeOutcome(w, r, h.mail.Send(r.Context(), req.To, req.Subject, req.Body))
}

func (h *Handlers) HandleMessageSend(w http.ResponseWriter, r *http.Request) {
	var req MessageSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	writeOutcome(w, r, h.messages.Send(r.Context(), req.Recipient, req.Text))
}

func (h *Handlers) HandleMessageRecent(w http.ResponseWriter, r *http.Request) {
	var req MessageRecentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	writeOutcome(w, r, h.messages.Recent(r.Context(), req.Recipient, req.Limit))
}

func (h *Handlers) HandleContactSearch(w http.ResponseWriter, r *http.Request) {
	var req ContactSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	writeOutcome(w, r, h.contacts.Search(r.Context(), req.Name, req.Limit))
}

func (h *Handlers) HandleReminderCreate(w http.ResponseWriter, r *http.Request) {
	var req ReminderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid JSON: "+err.Error(), "INVALID_REQUEST", http.StatusBadRequest, r)
		return
	}
	writeOutcome(w, r, h.reminders.Create(r.Context(), req.Name, req.List))
}

// HandleAuditLogs serves the in-process audit log; when a database is
// configured the persisted history is available as well via ?source=db.
func (h *Handlers) HandleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("source") == "db" {
		if h.db == nil {
			writeError(w, "database not configured", "DB_UNAVAILABLE", http.StatusServiceUnavailable, r)
			return
		}
		filter := storage.AuditFilter{
			Operation: r.URL.Query().Get("operation"),
			Limit:     100,
		}
		recs, err := h.db.ListAudit(r.Context(), filter)
		if err != nil {
			log.Error().Err(err).Msg("audit query failed")
			writeError(w, "query failed", "INTERNAL", http.StatusInternalServerError, r)
			return
		}
		writeJSON(w, http.StatusOK, recs)
		return
	}

	n := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			n = v
		}
	}
	writeJSON(w, http.StatusOK, h.audit.Recent(n))
}

// writeOutcome maps an executor outcome onto the HTTP surface.
func writeOutcome(w http.ResponseWriter, r *http.Request, outcome executor.Outcome) {
	switch outcome.Status {
	case executor.StatusInvalid:
		writeError(w, outcome.Err.Error(), "VALIDATION_ERROR", http.StatusBadRequest, r)

	case executor.StatusRateLimited:
		w.Header().Set("Retry-After", "60")
		writeError(w, "rate limit exceeded, try again later", "RATE_LIMITED", http.StatusTooManyRequests, r)

	case executor.StatusFailed:
		msg := "operation failed"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		writeError(w, msg, "EXECUTION_FAILED", http.StatusBadGateway, r)

	default:
		records := make([]map[string]string, 0, len(outcome.Records))
		for _, rec := range outcome.Records {
			records = append(records, rec)
		}
		writeJSON(w, http.StatusOK, RecordsResponse{
			Status:  string(outcome.Status),
			Count:   len(records),
			Records: records,
		})
	}
}

func queryLimit(r *http.Request) float64 {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, msg, code string, status int, r *http.Request) {
	resp := ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: RequestIDFromContext(r.Context()),
	}
	writeJSON(w, status, resp)
}
