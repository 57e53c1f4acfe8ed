// Package instagram publishes posts to an Instagram business account linked
// to a facebook page.
package instagram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/bissquit/post-scheduler/internal/channels"
	"github.com/bissquit/post-scheduler/internal/channels/graph"
	"github.com/bissquit/post-scheduler/internal/domain"
)

// ErrAccountUnresolved is returned when the page has no linked business account.
var ErrAccountUnresolved = errors.New("instagram business account not resolved")

// Config holds instagram publisher configuration.
type Config struct {
	PageID string
	Graph  graph.Config
}

// Publisher implements channels.Publisher for Instagram.
type Publisher struct {
	pageID string
	client *graph.Client

	mu        sync.Mutex
	accountID string
}

// NewPublisher creates a new instagram publisher.
// Returns error if the page id or access token is missing.
func NewPublisher(config Config) (*Publisher, error) {
	if config.Graph.AccessToken == "" {
		return nil, errors.New("instagram publisher: access token is required")
	}
	if config.PageID == "" {
		return nil, errors.New("instagram publisher: page id is required")
	}

	slog.Info("instagram publisher configured",
		"page_id", config.PageID,
		"rate_limit", config.Graph.RateLimit,
	)

	return &Publisher{
		pageID: config.PageID,
		client: graph.NewClient(config.Graph),
	}, nil
}

// Channel returns the channel served by this publisher.
func (p *Publisher) Channel() domain.Channel {
	return domain.ChannelInstagram
}

type idResponse struct {
	ID string `json:"id"`
}

type accountResponse struct {
	InstagramBusinessAccount *idResponse `json:"instagram_business_account"`
}

// Publish resolves the business account, creates a media container and
// publishes it. A failure at any step aborts the publish.
func (p *Publisher) Publish(ctx context.Context, content, imageURL string) (channels.Receipt, error) {
	accountID, err := p.resolveAccount(ctx)
	if err != nil {
		return channels.Receipt{}, err
	}

	var container idResponse
	err = p.client.PostJSON(ctx, accountID+"/media", map[string]string{
		"image_url": imageURL,
		"caption":   content,
	}, &container)
	if err != nil {
		return channels.Receipt{}, fmt.Errorf("create media container: %w", err)
	}
	if container.ID == "" {
		return channels.Receipt{}, errors.New("create media container: empty creation id")
	}

	var published idResponse
	err = p.client.PostJSON(ctx, accountID+"/media_publish", map[string]string{
		"creation_id": container.ID,
	}, &published)
	if err != nil {
		return channels.Receipt{}, fmt.Errorf("publish media container %s: %w", container.ID, err)
	}

	return channels.Receipt{ID: published.ID}, nil
}

// resolveAccount returns the business account id of the configured page.
// Only a successful lookup is cached.
func (p *Publisher) resolveAccount(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accountID != "" {
		return p.accountID, nil
	}

	var resp accountResponse
	params := url.Values{"fields": {"instagram_business_account"}}
	if err := p.client.Get(ctx, p.pageID, params, &resp); err != nil {
		return "", fmt.Errorf("resolve business account: %w", err)
	}
	if resp.InstagramBusinessAccount == nil || resp.InstagramBusinessAccount.ID == "" {
		return "", fmt.Errorf("%w for page %s", ErrAccountUnresolved, p.pageID)
	}

	p.accountID = resp.InstagramBusinessAccount.ID
	slog.Debug("instagram business account resolved",
		"page_id", p.pageID,
		"account_id", p.accountID,
	)
	return p.accountID, nil
}
