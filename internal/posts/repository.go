package posts

import (
	"context"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
)

// Repository defines the interface for post storage.
type Repository interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	// Update replaces the client-mutable fields. Status and delivery
	// progress are left untouched.
	Update(ctx context.Context, post *domain.Post) error
	// Delete removes a post and returns it as it was before removal.
	Delete(ctx context.Context, id string) (*domain.Post, error)

	Count(ctx context.Context, query Query) (int, error)
	// Find returns one page of matching posts in a stable order.
	Find(ctx context.Context, query Query, offset, limit int) ([]*domain.Post, error)
}

// Query is a store-level post filter. Zero-valued fields add no constraint;
// slice fields match when the post value is one of the given values, or for
// array columns when the post shares at least one value.
type Query struct {
	// From and To bound schedule_date_time, both inclusive.
	From *time.Time
	To   *time.Time

	// ScheduleDate matches the display date exactly (YYYY-MM-DD).
	ScheduleDate string
	// ScheduleTimePrefix matches the start of the display time, e.g. "09:30".
	ScheduleTimePrefix string
	// ScheduleDateTime matches every instant within the same second.
	ScheduleDateTime *time.Time

	DataTypes []domain.DataType
	Statuses  []domain.Status
	TargetIDs []string
	Actions   []domain.Action
	Networks  []domain.Network
	Channels  []domain.Channel
}
