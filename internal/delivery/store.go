// Package delivery matches due posts and delivers them to their channels,
// either on demand or from a cron schedule.
package delivery

import (
	"context"
	"time"

	"github.com/bissquit/post-scheduler/internal/channels"
	"github.com/bissquit/post-scheduler/internal/domain"
)

// Store defines the persistence operations the delivery cycle needs.
type Store interface {
	FindDue(ctx context.Context, now time.Time) ([]*domain.Post, error)
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// MarkDelivered must only change a post that is still not-sent and
	// reports whether it did.
	MarkDelivered(ctx context.Context, id string, channels []domain.Channel, complete bool) (bool, error)
}

// StatsSource reports post counts by delivery state.
type StatsSource interface {
	Stats(ctx context.Context, now time.Time) (Stats, error)
}

// Stats holds post counts by delivery state.
type Stats struct {
	Pending int
	Due     int
	Sent    int
}

// Dispatcher publishes content to a single channel.
type Dispatcher interface {
	Publish(ctx context.Context, channel domain.Channel, content, imageURL string) (channels.Receipt, error)
}
