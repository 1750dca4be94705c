// Package fanout materializes per-user inbox entries from one
// (message, topic) pair's membership list.
package fanout

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bez-dna/bzd-flux/internal/feeds"
	"github.com/bez-dna/bzd-flux/internal/feeds/metrics"
	"github.com/bez-dna/bzd-flux/internal/feeds/repo"
)

// Service walks topic membership pages and upserts entries idempotently.
type Service struct {
	repo    repo.Repository
	metrics *metrics.Metrics
}

// New wraps a Repository.
func New(r repo.Repository) *Service {
	return &Service{repo: r}
}

// WithMetrics attaches a collector set; each upsert increments it.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// CreateEntriesForMessageTopic walks one page of topic_id's membership,
// starting strictly after lastTopicUserID (nil means from the start),
// upserts one entry per member, and returns the cursor to resume from on
// the next call. A nil returned cursor means the page was empty — the
// caller's task is done.
func (s *Service) CreateEntriesForMessageTopic(ctx context.Context, messageID, topicID uuid.UUID, lastTopicUserID *uuid.UUID) (*uuid.UUID, error) {
	page, err := s.repo.ListTopicMemberships(ctx, topicID, lastTopicUserID, feeds.MembershipPageSize)
	if err != nil {
		return nil, fmt.Errorf("fanout: list topic memberships: %w", err)
	}
	if len(page.Items) == 0 {
		return nil, nil
	}

	for _, m := range page.Items {
		entry := feeds.NewEntry(m.UserID, messageID, []uuid.UUID{m.TopicUserID})
		if err := s.repo.UpsertEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("fanout: upsert entry for user %s: %w", m.UserID, err)
		}
		if s.metrics != nil {
			s.metrics.EntriesUpserted.Inc()
		}
	}

	// Memberships arrive ordered topic_user_id descending; the last item
	// in the page is the smallest ID seen and becomes the next cursor.
	cursor := page.Items[len(page.Items)-1].TopicUserID
	return &cursor, nil
}
