// Package postgres provides PostgreSQL implementation of the posts repository
// and the delivery store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/post-scheduler/internal/delivery"
	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/posts"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `
	id, data_type, target_id, action, networks, channels, delivered_channels,
	status, content, image_url, schedule_date, schedule_time, schedule_date_time,
	sent_at, created_at, updated_at`

// Repository implements posts.Repository and delivery.Store using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new post.
func (r *Repository) Create(ctx context.Context, post *domain.Post) error {
	scheduleDate, err := parseDate(post.ScheduleDate)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduled_posts (
			data_type, target_id, action, networks, channels, delivered_channels,
			status, content, image_url, schedule_date, schedule_time, schedule_date_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(ctx, query,
		post.DataType,
		post.TargetID,
		post.Action,
		toStrings(post.Networks),
		toStrings(post.Channels),
		toStrings(post.DeliveredChannels),
		post.Status,
		post.Content,
		post.Image.URL,
		scheduleDate,
		post.ScheduleTime,
		post.ScheduleDateTime,
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, posts.ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// Update replaces the client-mutable fields of a post and refreshes the
// delivery state from the row.
func (r *Repository) Update(ctx context.Context, post *domain.Post) error {
	scheduleDate, err := parseDate(post.ScheduleDate)
	if err != nil {
		return err
	}

	query := `
		UPDATE scheduled_posts
		SET data_type = $2, target_id = $3, action = $4, networks = $5, channels = $6,
		    content = $7, image_url = $8, schedule_date = $9, schedule_time = $10,
		    schedule_date_time = $11,
		    delivered_channels = ARRAY(
		        SELECT c FROM unnest(delivered_channels) AS c WHERE c = ANY($6::text[]) ORDER BY c
		    ),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING status, delivered_channels, sent_at, updated_at
	`
	var delivered []string
	err = r.db.QueryRow(ctx, query,
		post.ID,
		post.DataType,
		post.TargetID,
		post.Action,
		toStrings(post.Networks),
		toStrings(post.Channels),
		post.Content,
		post.Image.URL,
		scheduleDate,
		post.ScheduleTime,
		post.ScheduleDateTime,
	).Scan(&post.Status, &delivered, &post.SentAt, &post.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return posts.ErrPostNotFound
		}
		return fmt.Errorf("update post: %w", err)
	}
	post.DeliveredChannels = fromStrings[domain.Channel](delivered)
	return nil
}

// Delete removes a post and returns the deleted row.
func (r *Repository) Delete(ctx context.Context, id string) (*domain.Post, error) {
	query := `DELETE FROM scheduled_posts WHERE id = $1 RETURNING ` + postColumns

	post, err := scanPost(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, posts.ErrPostNotFound
		}
		return nil, fmt.Errorf("delete post: %w", err)
	}
	return post, nil
}

// Count returns the number of posts matching q.
func (r *Repository) Count(ctx context.Context, q posts.Query) (int, error) {
	where, args := buildWhere(q)

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM scheduled_posts`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// Find returns one page of posts matching q in creation order.
func (r *Repository) Find(ctx context.Context, q posts.Query, offset, limit int) ([]*domain.Post, error) {
	where, args := buildWhere(q)
	argNum := len(args) + 1

	query := `SELECT ` + postColumns + ` FROM scheduled_posts` + where +
		fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	return r.queryPosts(ctx, query, args...)
}

// FindDue returns every not-sent post scheduled at or before now.
func (r *Repository) FindDue(ctx context.Context, now time.Time) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts
		WHERE status = $1 AND schedule_date_time <= $2
		ORDER BY schedule_date_time, id`

	return r.queryPosts(ctx, query, domain.StatusNotSent, now)
}

// MarkDelivered records successful channels of a not-sent post and, when
// complete, flips it to sent. It is a single conditional write: a post that
// is already sent is left unchanged and false is returned.
func (r *Repository) MarkDelivered(ctx context.Context, id string, channels []domain.Channel, complete bool) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET delivered_channels = ARRAY(
		        SELECT DISTINCT c FROM unnest(delivered_channels || $2::text[]) AS c ORDER BY c
		    ),
		    status = CASE WHEN $3 THEN $5 ELSE status END,
		    sent_at = CASE WHEN $3 THEN NOW() ELSE sent_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	result, err := r.db.Exec(ctx, query, id, toStrings(channels), complete, domain.StatusNotSent, domain.StatusSent)
	if err != nil {
		return false, fmt.Errorf("mark post delivered: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// Stats returns post counts by delivery state at now.
func (r *Repository) Stats(ctx context.Context, now time.Time) (delivery.Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $1 AND schedule_date_time <= $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM scheduled_posts
	`
	var stats delivery.Stats
	err := r.db.QueryRow(ctx, query, domain.StatusNotSent, now, domain.StatusSent).
		Scan(&stats.Pending, &stats.Due, &stats.Sent)
	if err != nil {
		return delivery.Stats{}, fmt.Errorf("post stats: %w", err)
	}
	return stats, nil
}

func (r *Repository) queryPosts(ctx context.Context, query string, args ...any) ([]*domain.Post, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return result, nil
}

func buildWhere(q posts.Query) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}
	argNum := 1

	add := func(condition string, value any) {
		where += fmt.Sprintf(condition, argNum)
		args = append(args, value)
		argNum++
	}

	if q.From != nil {
		add(" AND schedule_date_time >= $%d", *q.From)
	}
	if q.To != nil {
		add(" AND schedule_date_time <= $%d", *q.To)
	}
	if q.ScheduleDate != "" {
		if day, err := parseDate(q.ScheduleDate); err == nil {
			add(" AND schedule_date = $%d", day)
		}
	}
	if q.ScheduleTimePrefix != "" {
		add(" AND schedule_time LIKE $%d", q.ScheduleTimePrefix+"%")
	}
	if q.ScheduleDateTime != nil {
		second := q.ScheduleDateTime.Truncate(time.Second)
		add(" AND schedule_date_time >= $%d", second)
		add(" AND schedule_date_time < $%d", second.Add(time.Second))
	}
	if len(q.DataTypes) > 0 {
		add(" AND data_type = ANY($%d)", toStrings(q.DataTypes))
	}
	if len(q.Statuses) > 0 {
		add(" AND status = ANY($%d)", toStrings(q.Statuses))
	}
	if len(q.TargetIDs) > 0 {
		add(" AND target_id = ANY($%d)", q.TargetIDs)
	}
	if len(q.Actions) > 0 {
		add(" AND action = ANY($%d)", toStrings(q.Actions))
	}
	if len(q.Networks) > 0 {
		add(" AND networks && $%d", toStrings(q.Networks))
	}
	if len(q.Channels) > 0 {
		add(" AND channels && $%d", toStrings(q.Channels))
	}

	return where, args
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var (
		post                          domain.Post
		networks, channels, delivered []string
		scheduleDate                  time.Time
	)
	err := row.Scan(
		&post.ID,
		&post.DataType,
		&post.TargetID,
		&post.Action,
		&networks,
		&channels,
		&delivered,
		&post.Status,
		&post.Content,
		&post.Image.URL,
		&scheduleDate,
		&post.ScheduleTime,
		&post.ScheduleDateTime,
		&post.SentAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Networks = fromStrings[domain.Network](networks)
	post.Channels = fromStrings[domain.Channel](channels)
	post.DeliveredChannels = fromStrings[domain.Channel](delivered)
	post.ScheduleDate = scheduleDate.Format(domain.DateLayout)
	return &post, nil
}

// parseDate converts a display date into the value bound to a DATE column.
func parseDate(value string) (time.Time, error) {
	day, err := time.Parse(domain.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule date %q: %w", value, err)
	}
	return day, nil
}

func toStrings[T ~string](values []T) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = string(v)
	}
	return result
}

func fromStrings[T ~string](values []string) []T {
	result := make([]T, len(values))
	for i, v := range values {
		result[i] = T(v)
	}
	return result
}
