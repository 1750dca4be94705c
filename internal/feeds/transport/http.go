// Package transport exposes the read service as an HTTP/JSON RPC surface.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds/read"
	"github.com/bez-dna/bzd-flux/internal/logging"
)

// ReadService is the slice of the read component the HTTP layer needs.
type ReadService interface {
	GetUserEntries(ctx context.Context, userID uuid.UUID, cursorEntryID *uuid.UUID) (read.Page, error)
}

// getUserEntriesRequest is the JSON body of POST /get_user_entries.
type getUserEntriesRequest struct {
	UserID        string  `json:"user_id"`
	CursorEntryID *string `json:"cursor_entry_id,omitempty"`
}

// getUserEntriesResponse matches spec §6's RPC contract: the message_id
// of each entry, in order, plus a cursor iff another page exists.
type getUserEntriesResponse struct {
	MessageIDs    []string `json:"message_ids"`
	CursorEntryID *string  `json:"cursor_entry_id,omitempty"`
}

// NewRouter builds the chi router exposing the read RPC plus a liveness
// probe. metrics is mounted by the caller at /metrics.
func NewRouter(svc ReadService, log logging.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/get_user_entries", handleGetUserEntries(svc, log))

	return r
}

func handleGetUserEntries(svc ReadService, log logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req getUserEntriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			http.Error(w, "invalid user_id", http.StatusBadRequest)
			return
		}

		var cursor *uuid.UUID
		if req.CursorEntryID != nil {
			parsed, err := uuid.Parse(*req.CursorEntryID)
			if err != nil {
				http.Error(w, "invalid cursor_entry_id", http.StatusBadRequest)
				return
			}
			cursor = &parsed
		}

		page, err := svc.GetUserEntries(r.Context(), userID, cursor)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("get_user_entries failed", "user_id", userID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		resp := getUserEntriesResponse{MessageIDs: make([]string, len(page.MessageIDs))}
		for i, id := range page.MessageIDs {
			resp.MessageIDs[i] = id.String()
		}
		if page.NextCursor != nil {
			s := page.NextCursor.String()
			resp.CursorEntryID = &s
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("encode get_user_entries response failed", "error", err)
		}
	}
}
