// Package read implements the cursor-paginated per-user feed read.
package read

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

// Page is one page of a user's feed: the message_id of each entry, in
// descending entry_id order, plus the cursor to request the next page
// (nil when this was the last page).
type Page struct {
	MessageIDs []uuid.UUID
	NextCursor *uuid.UUID
}

// Service answers get_user_entries requests.
type Service struct {
	repo     repo.Repository
	pageSize int
}

// New wraps a Repository. pageSize is the configured per-page budget
// (feeds.limits.user); GetUserEntries fetches pageSize+1 rows and pops
// the extra one as the next cursor.
func New(r repo.Repository, pageSize int) *Service {
	return &Service{repo: r, pageSize: pageSize}
}

// GetUserEntries returns up to pageSize entries for userID, newest first,
// optionally resuming at cursorEntryID (inclusive — the cursor is the
// first row of the page it points to, popped off the previous page).
func (s *Service) GetUserEntries(ctx context.Context, userID uuid.UUID, cursorEntryID *uuid.UUID) (Page, error) {
	fetched, err := s.repo.ListUserEntries(ctx, userID, cursorEntryID, s.pageSize+1)
	if err != nil {
		return Page{}, fmt.Errorf("read: list user entries: %w", err)
	}

	items := fetched.Items
	var next *uuid.UUID
	if len(items) > s.pageSize {
		popped := items[s.pageSize]
		next = &popped.EntryID
		items = items[:s.pageSize]
	}

	messageIDs := make([]uuid.UUID, len(items))
	for i, e := range items {
		messageIDs[i] = e.MessageID
	}

	return Page{MessageIDs: messageIDs, NextCursor: next}, nil
}
