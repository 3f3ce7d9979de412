package http

import (
	"net/http"
	"strconv"

	"github.com/mothertree-labs/mothertree-oss/internal/portal/store"
	"github.com/mothertree-labs/mothertree-oss/pkg/httpx"
	"github.com/mothertree-labs/mothertree-oss/pkg/slogx"
)

// AuditEntry is the wire form of one audit event.
type AuditEntry struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	UserID      string `json:"user_id"`
	MaskedEmail string `json:"masked_email,omitempty"`
	Outcome     string `json:"outcome"`
	Detail      string `json:"detail,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type AuditHandler struct {
	Audit store.AuditLog
}

// ServeHTTP godoc
//
//	@Summary		Audit Trail
//	@Description	Lists recorded lifecycle events, newest first. Filter by user_id. Internal-only.
//	@Tags			Audit
//	@Produce		json
//	@Param			user_id	query		string	false	"Filter by account ID"
//	@Param			limit	query		int		false	"Max events (default 100)"
//	@Success		200		{array}		AuditEntry
//	@Failure		500		{object}	httpx.ErrorResponse	"error, error_description"
//	@Security		InternalAuth
//	@Router			/api/audit [get].
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	var (
		events []store.AuditEvent
		err    error
	)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		events, err = h.Audit.ListByUser(ctx, userID, limit)
	} else {
		events, err = h.Audit.ListRecent(ctx, limit)
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to read audit log", "error", err)
		httpx.WriteJSON(w, http.StatusInternalServerError, httpx.ErrorResponse{
			Error:            "server_error",
			ErrorDescription: "Failed to read the audit log",
		})
		return
	}

	entries := make([]AuditEntry, 0, len(events))
	for _, event := range events {
		entries = append(entries, AuditEntry{
			ID:          event.ID,
			Kind:        event.Kind,
			UserID:      event.UserID,
			MaskedEmail: event.MaskedEmail,
			Outcome:     event.Outcome,
			Detail:      event.Detail,
			CreatedAt:   event.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	httpx.WriteJSON(w, http.StatusOK, entries)
}
