// Package channels provides publishing channel adapters and the dispatcher routing to them.
package channels

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
)

// Dispatch errors.
var (
	ErrUnknownChannel = errors.New("unknown channel")
	ErrDispatchFailed = errors.New("channel dispatch failed")
)

// Receipt is the upstream acknowledgement of a published post.
type Receipt struct {
	ID string `json:"id"`
}

// Publisher publishes content to one channel.
type Publisher interface {
	Channel() domain.Channel
	Publish(ctx context.Context, content, imageURL string) (Receipt, error)
}

// DispatchError is a failure isolated to one channel.
type DispatchError struct {
	Channel domain.Channel
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s: %v", e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is makes every DispatchError match ErrDispatchFailed.
func (e *DispatchError) Is(target error) bool {
	return target == ErrDispatchFailed
}

// Dispatcher routes a publish request to the publisher registered for a channel.
type Dispatcher struct {
	publishers map[domain.Channel]Publisher
}

// NewDispatcher creates a dispatcher over the given publishers.
func NewDispatcher(publishers ...Publisher) *Dispatcher {
	m := make(map[domain.Channel]Publisher, len(publishers))
	for _, p := range publishers {
		m[p.Channel()] = p
	}
	return &Dispatcher{publishers: m}
}

// Channels returns the channels that have a publisher, sorted.
func (d *Dispatcher) Channels() []domain.Channel {
	result := make([]domain.Channel, 0, len(d.publishers))
	for ch := range d.publishers {
		result = append(result, ch)
	}
	slices.Sort(result)
	return result
}

// Publish sends content to a single channel. It never retries.
// Every returned error matches ErrDispatchFailed.
func (d *Dispatcher) Publish(ctx context.Context, channel domain.Channel, content, imageURL string) (Receipt, error) {
	publisher, ok := d.publishers[channel]
	if !ok {
		recordDispatch(channel, "unknown_channel")
		return Receipt{}, &DispatchError{Channel: channel, Err: ErrUnknownChannel}
	}

	start := time.Now()
	receipt, err := publisher.Publish(ctx, content, imageURL)
	duration := time.Since(start)
	recordDispatchDuration(channel, duration)

	if err != nil {
		recordDispatch(channel, "failed")
		ctxlog.FromContext(ctx).Warn("publish failed",
			"channel", channel,
			"duration", duration,
			"error", err,
		)
		return Receipt{}, &DispatchError{Channel: channel, Err: err}
	}

	recordDispatch(channel, "success")
	ctxlog.FromContext(ctx).Debug("published",
		"channel", channel,
		"receipt_id", receipt.ID,
		"duration", duration,
	)
	return receipt, nil
}
