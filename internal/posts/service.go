// Package posts provides post management and calendar queries.
package posts

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/timeframe"
)

// Service implements post business logic.
type Service struct {
	repo Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a new post service. Display dates and calendar buckets
// are computed in loc.
func NewService(repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

// PostInput holds the client-mutable fields of a post.
// ScheduleDate and ScheduleTime are optional and derived from
// ScheduleDateTime when empty.
type PostInput struct {
	DataType         domain.DataType
	TargetID         string
	Action           domain.Action
	Networks         []domain.Network
	Channels         []domain.Channel
	Content          string
	ImageURL         string
	ScheduleDate     string
	ScheduleTime     string
	ScheduleDateTime time.Time
}

// Calendar maps every day of a window (YYYY-MM-DD) to the posts scheduled on it.
type Calendar map[string][]*domain.Post

// Create validates and stores a new post. New posts are always not-sent.
func (s *Service) Create(ctx context.Context, input PostInput) (*domain.Post, error) {
	post := &domain.Post{
		Status:            domain.StatusNotSent,
		DeliveredChannels: []domain.Channel{},
	}
	if err := s.apply(post, input); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Get returns a post by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces the mutable fields of a post.
func (s *Service) Update(ctx context.Context, id string, input PostInput) (*domain.Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(post, input); err != nil {
		return nil, err
	}
	post.DeliveredChannels = post.DeliveredRequested()

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// Delete removes a post and returns it.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Post, error) {
	return s.repo.Delete(ctx, id)
}

// QueryFiltered returns one page of posts matching filter.
func (s *Service) QueryFiltered(ctx context.Context, filter Filter, page Page) ([]*domain.Post, PaginationMeta, error) {
	if err := page.Validate(); err != nil {
		return nil, PaginationMeta{}, err
	}
	query, err := filter.Query()
	if err != nil {
		return nil, PaginationMeta{}, err
	}

	return s.findPage(ctx, query, page)
}

// QueryByWindow returns one page of posts scheduled within the resolved
// window, bucketed by calendar day. Every day of the window is present in
// the result, empty days included.
func (s *Service) QueryByWindow(ctx context.Context, frame timeframe.Frame, params timeframe.Params, filter CalendarFilter, page Page) (Calendar, PaginationMeta, error) {
	window, err := timeframe.Resolve(frame, params, s.loc)
	if err != nil {
		return nil, PaginationMeta{}, err
	}
	if err := page.Validate(); err != nil {
		return nil, PaginationMeta{}, err
	}

	query := Query{From: &window.Start, To: &window.End}
	if err := filter.apply(&query); err != nil {
		return nil, PaginationMeta{}, err
	}

	posts, meta, err := s.findPage(ctx, query, page)
	if err != nil {
		return nil, PaginationMeta{}, err
	}

	calendar, err := bucket(window, posts)
	if err != nil {
		return nil, PaginationMeta{}, err
	}
	return calendar, meta, nil
}

func (s *Service) findPage(ctx context.Context, query Query, page Page) ([]*domain.Post, PaginationMeta, error) {
	total, err := s.repo.Count(ctx, query)
	if err != nil {
		return nil, PaginationMeta{}, fmt.Errorf("count posts: %w", err)
	}

	meta, err := NewPaginationMeta(total, page)
	if err != nil {
		return nil, PaginationMeta{}, err
	}

	posts, err := s.repo.Find(ctx, query, page.Offset(), page.Size)
	if err != nil {
		return nil, PaginationMeta{}, fmt.Errorf("find posts: %w", err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return posts, meta, nil
}

func bucket(window timeframe.Window, posts []*domain.Post) (Calendar, error) {
	days := window.Days()
	calendar := make(Calendar, len(days))
	for _, day := range days {
		calendar[day] = []*domain.Post{}
	}

	for _, post := range posts {
		key := window.DayKey(post.ScheduleDateTime)
		if _, ok := calendar[key]; !ok || !window.Contains(post.ScheduleDateTime) {
			return nil, fmt.Errorf("%w: post %s on %s", ErrBucketOutOfRange, post.ID, key)
		}
		calendar[key] = append(calendar[key], post)
	}
	return calendar, nil
}

// apply validates input and copies it onto post.
func (s *Service) apply(post *domain.Post, input PostInput) error {
	if !input.DataType.IsValid() {
		return fmt.Errorf("%w: unknown data_type %q", ErrInvalidPost, input.DataType)
	}
	if !input.Action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidPost, input.Action)
	}
	if len(input.Networks) == 0 {
		return fmt.Errorf("%w: networks must not be empty", ErrInvalidPost)
	}
	for _, n := range input.Networks {
		if !n.IsValid() {
			return fmt.Errorf("%w: unknown network %q", ErrInvalidPost, n)
		}
	}
	if len(input.Channels) == 0 {
		return fmt.Errorf("%w: channels must not be empty", ErrInvalidPost)
	}
	for _, ch := range input.Channels {
		if !ch.IsValid() {
			return fmt.Errorf("%w: unknown channel %q", ErrInvalidPost, ch)
		}
	}
	if input.TargetID == "" || input.Content == "" || input.ImageURL == "" {
		return fmt.Errorf("%w: target_id, content and image url are required", ErrInvalidPost)
	}
	if input.ScheduleDateTime.IsZero() {
		return fmt.Errorf("%w: schedule_date_time is required", ErrInvalidPost)
	}

	local := input.ScheduleDateTime.In(s.loc)
	if input.ScheduleDate != "" && input.ScheduleDate != local.Format(domain.DateLayout) {
		return fmt.Errorf("%w: schedule_date %s, expected %s", ErrScheduleMismatch, input.ScheduleDate, local.Format(domain.DateLayout))
	}
	if input.ScheduleTime != "" && input.ScheduleTime != local.Format(domain.TimeLayout) {
		return fmt.Errorf("%w: schedule_time %s, expected %s", ErrScheduleMismatch, input.ScheduleTime, local.Format(domain.TimeLayout))
	}
	today := s.now().In(s.loc).Format(domain.DateLayout)
	if local.Format(domain.DateLayout) < today {
		return fmt.Errorf("%w: %s is before %s", ErrScheduleInPast, local.Format(domain.DateLayout), today)
	}

	post.DataType = input.DataType
	post.TargetID = input.TargetID
	post.Action = input.Action
	post.Networks = input.Networks
	post.Channels = dedupeChannels(input.Channels)
	post.Content = input.Content
	post.Image = domain.Image{URL: input.ImageURL}
	post.SetSchedule(input.ScheduleDateTime, s.loc)
	return nil
}

func dedupeChannels(chs []domain.Channel) []domain.Channel {
	seen := make(map[domain.Channel]struct{}, len(chs))
	result := make([]domain.Channel, 0, len(chs))
	for _, ch := range chs {
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		result = append(result, ch)
	}
	return result
}
