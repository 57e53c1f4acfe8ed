package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
)

// Matcher selects the posts that are due for delivery.
type Matcher struct {
	store Store
}

// NewMatcher creates a new matcher.
func NewMatcher(store Store) *Matcher {
	return &Matcher{store: store}
}

// DueItems returns every not-sent post scheduled at or before now.
func (m *Matcher) DueItems(ctx context.Context, now time.Time) ([]*domain.Post, error) {
	candidates, err := m.store.FindDue(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("find due posts: %w", err)
	}

	due := make([]*domain.Post, 0, len(candidates))
	for _, post := range candidates {
		if post.IsDue(now) {
			due = append(due, post)
		}
	}
	return due, nil
}
