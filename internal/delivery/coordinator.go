package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
	"github.com/bissquit/post-scheduler/internal/pkg/ctxlog"
	"github.com/bissquit/post-scheduler/internal/posts"
	"golang.org/x/sync/errgroup"
)

// RetryPolicy decides which channels a later cycle dispatches for a post
// that was partially delivered.
type RetryPolicy string

// Retry policies.
const (
	// RetryFailedOnly dispatches only the channels not yet delivered.
	RetryFailedOnly RetryPolicy = "failed_only"
	// RetryWholeItem dispatches every requested channel again.
	RetryWholeItem RetryPolicy = "whole_item"
)

// ErrInvalidRetryPolicy is returned for an unknown retry policy.
var ErrInvalidRetryPolicy = errors.New("invalid retry policy")

// ParseRetryPolicy converts a config value into a RetryPolicy.
// An empty value selects RetryFailedOnly.
func ParseRetryPolicy(value string) (RetryPolicy, error) {
	switch p := RetryPolicy(value); p {
	case "":
		return RetryFailedOnly, nil
	case RetryFailedOnly, RetryWholeItem:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRetryPolicy, value)
}

// OutcomeStatus is the result of one (post, channel) delivery attempt.
type OutcomeStatus string

// Outcome statuses.
const (
	OutcomeSuccess          OutcomeStatus = "success"
	OutcomeFailed           OutcomeStatus = "failed"
	OutcomeAlreadyDelivered OutcomeStatus = "already_delivered"
	// OutcomeUnrecorded is a publish that succeeded but could not be
	// recorded; a later run may publish it again.
	OutcomeUnrecorded OutcomeStatus = "unrecorded"
)

// Outcome reports the delivery of one post to one channel.
type Outcome struct {
	PostID    string         `json:"post_id"`
	Channel   domain.Channel `json:"channel"`
	Status    OutcomeStatus  `json:"status"`
	ReceiptID string         `json:"receipt_id,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Summary aggregates the outcomes of a run.
type Summary struct {
	Posts            int `json:"posts"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
	AlreadyDelivered int `json:"already_delivered"`
	Unrecorded       int `json:"unrecorded"`
}

// Summarize counts outcomes by status and distinct posts.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	seen := make(map[string]struct{})
	for _, o := range outcomes {
		seen[o.PostID] = struct{}{}
		switch o.Status {
		case OutcomeSuccess:
			s.Succeeded++
		case OutcomeFailed:
			s.Failed++
		case OutcomeAlreadyDelivered:
			s.AlreadyDelivered++
		case OutcomeUnrecorded:
			s.Unrecorded++
		}
	}
	s.Posts = len(seen)
	return s
}

// Coordinator runs a delivery cycle: match due posts, dispatch each to its
// channels, and record the result.
type Coordinator struct {
	matcher    *Matcher
	store      Store
	dispatcher Dispatcher
	policy     RetryPolicy

	inFlight sync.Map
}

// NewCoordinator creates a new delivery coordinator.
func NewCoordinator(matcher *Matcher, store Store, dispatcher Dispatcher, policy RetryPolicy) *Coordinator {
	if policy == "" {
		policy = RetryFailedOnly
	}
	return &Coordinator{
		matcher:    matcher,
		store:      store,
		dispatcher: dispatcher,
		policy:     policy,
	}
}

// Execute delivers every post due at now. Channel and per-post store
// failures are reported in the outcomes and never abort the run; an error
// is returned only when the due posts cannot be loaded. Posts another run
// in this process is delivering are skipped.
func (c *Coordinator) Execute(ctx context.Context, now time.Time) ([]Outcome, error) {
	start := time.Now()

	due, err := c.matcher.DueItems(ctx, now)
	if err != nil {
		recordTriggerRun("error")
		return nil, err
	}

	// Dispatches and status writes outlive the caller.
	work := context.WithoutCancel(ctx)

	results := make([][]Outcome, len(due))
	var g errgroup.Group
	for i, post := range due {
		g.Go(func() error {
			outcomes, err := c.deliver(work, post)
			results[i] = outcomes
			return err
		})
	}
	storeErr := g.Wait()

	outcomes := make([]Outcome, 0, len(due))
	for _, r := range results {
		outcomes = append(outcomes, r...)
	}

	summary := Summarize(outcomes)
	ctxlog.FromContext(ctx).Info("trigger check completed",
		"due", len(due),
		"posts", summary.Posts,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"already_delivered", summary.AlreadyDelivered,
		"unrecorded", summary.Unrecorded,
		"duration", time.Since(start),
	)

	result := "success"
	if storeErr != nil {
		result = "error"
	}
	recordTriggerRun(result)
	return outcomes, nil
}

func (c *Coordinator) deliver(ctx context.Context, candidate *domain.Post) ([]Outcome, error) {
	ctx = ctxlog.With(ctx, "post_id", candidate.ID)
	logger := ctxlog.FromContext(ctx)

	if _, busy := c.inFlight.LoadOrStore(candidate.ID, struct{}{}); busy {
		logger.Debug("post delivery in progress, skipping")
		return nil, nil
	}
	defer c.inFlight.Delete(candidate.ID)

	// Re-read under the guard: a run that finished after our match may
	// already have delivered it.
	post, err := c.store.GetByID(ctx, candidate.ID)
	if errors.Is(err, posts.ErrPostNotFound) {
		logger.Debug("due post deleted, skipping")
		return nil, nil
	}
	if err != nil {
		err = fmt.Errorf("reload post %s: %w", candidate.ID, err)
		logger.Error("post not delivered", "error", err)
		return storeFailures(candidate, err), err
	}
	if post.Status != domain.StatusNotSent {
		return nil, nil
	}

	targets := post.Channels
	var outcomes []Outcome
	if c.policy == RetryFailedOnly {
		targets = post.PendingChannels()
		for _, ch := range post.DeliveredRequested() {
			outcomes = append(outcomes, Outcome{PostID: post.ID, Channel: ch, Status: OutcomeAlreadyDelivered})
		}
	}

	dispatched := make([]Outcome, len(targets))
	var wg sync.WaitGroup
	for i, ch := range targets {
		wg.Go(func() {
			dispatched[i] = c.dispatch(ctx, post, ch)
		})
	}
	wg.Wait()

	succeeded := make([]domain.Channel, 0, len(dispatched))
	complete := true
	for _, o := range dispatched {
		if o.Status == OutcomeSuccess {
			succeeded = append(succeeded, o.Channel)
		} else {
			complete = false
		}
	}

	if len(succeeded) == 0 && !complete {
		logger.Warn("post delivery failed on every channel", "channels", targets)
		return append(outcomes, dispatched...), nil
	}

	applied, err := c.store.MarkDelivered(ctx, post.ID, succeeded, complete)
	if err != nil {
		err = fmt.Errorf("record delivery of post %s: %w", post.ID, err)
		logger.Error("post published but not recorded", "delivered", succeeded, "error", err)
		for i := range dispatched {
			if dispatched[i].Status == OutcomeSuccess {
				dispatched[i].Status = OutcomeUnrecorded
				dispatched[i].Error = err.Error()
			}
		}
		return append(outcomes, dispatched...), err
	}
	outcomes = append(outcomes, dispatched...)

	switch {
	case !applied:
		logger.Warn("post already sent by another run")
	case complete:
		recordPostSent()
		logger.Info("post sent", "channels", post.Channels)
	default:
		logger.Info("post partially delivered",
			"delivered", succeeded,
			"requested", post.Channels,
		)
	}

	return outcomes, nil
}

// storeFailures reports every requested channel of post as failed by err.
func storeFailures(post *domain.Post, err error) []Outcome {
	outcomes := make([]Outcome, 0, len(post.Channels))
	for _, ch := range post.Channels {
		outcomes = append(outcomes, Outcome{PostID: post.ID, Channel: ch, Status: OutcomeFailed, Error: err.Error()})
	}
	return outcomes
}

func (c *Coordinator) dispatch(ctx context.Context, post *domain.Post, channel domain.Channel) Outcome {
	outcome := Outcome{PostID: post.ID, Channel: channel}

	receipt, err := c.dispatcher.Publish(ctx, channel, post.Content, post.Image.URL)
	if err != nil {
		outcome.Status = OutcomeFailed
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = OutcomeSuccess
	outcome.ReceiptID = receipt.ID
	return outcome
}
