// Package facebook publishes posts as page photos through the Graph API.
package facebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bissquit/post-scheduler/internal/channels"
	"github.com/bissquit/post-scheduler/internal/channels/graph"
	"github.com/bissquit/post-scheduler/internal/domain"
)

// Config holds facebook publisher configuration.
type Config struct {
	PageID string
	// Endpoint overrides the default "{page-id}/photos" Graph API path.
	Endpoint string
	Graph    graph.Config
}

// Publisher implements channels.Publisher for a facebook page.
type Publisher struct {
	endpoint string
	client   *graph.Client
}

// NewPublisher creates a new facebook publisher.
// Returns error if the page id or access token is missing.
func NewPublisher(config Config) (*Publisher, error) {
	if config.Graph.AccessToken == "" {
		return nil, errors.New("facebook publisher: access token is required")
	}
	if config.PageID == "" && config.Endpoint == "" {
		return nil, errors.New("facebook publisher: page id is required")
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = config.PageID + "/photos"
	}

	slog.Info("facebook publisher configured",
		"page_id", config.PageID,
		"rate_limit", config.Graph.RateLimit,
	)

	return &Publisher{
		endpoint: endpoint,
		client:   graph.NewClient(config.Graph),
	}, nil
}

// Channel returns the channel served by this publisher.
func (p *Publisher) Channel() domain.Channel {
	return domain.ChannelFacebook
}

type photoResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

// Publish posts the image with content as its caption in a single call.
func (p *Publisher) Publish(ctx context.Context, content, imageURL string) (channels.Receipt, error) {
	var resp photoResponse
	err := p.client.PostJSON(ctx, p.endpoint, map[string]string{
		"url":     imageURL,
		"caption": content,
	}, &resp)
	if err != nil {
		return channels.Receipt{}, fmt.Errorf("post page photo: %w", err)
	}

	id := resp.PostID
	if id == "" {
		id = resp.ID
	}
	return channels.Receipt{ID: id}, nil
}
