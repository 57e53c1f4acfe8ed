package domain

import (
	"slices"
	"time"
)

// DataType identifies what kind of entity a post is about.
type DataType string

// Data types.
const (
	DataTypeMatch    DataType = "match"
	DataTypePlayer   DataType = "player"
	DataTypeOfficial DataType = "official"
)

// IsValid checks if the data type is known.
func (t DataType) IsValid() bool {
	return t == DataTypeMatch || t == DataTypePlayer || t == DataTypeOfficial
}

// Action is the domain event a post announces.
type Action string

// Actions.
const (
	ActionMatchSummary        Action = "match_summary"
	ActionMatchResult         Action = "match_result"
	ActionTossResult          Action = "toss_result"
	ActionMatchScheduled      Action = "match_scheduled"
	ActionPlayerBirthday      Action = "player_birthday"
	ActionPlayerAnniversary   Action = "player_anniversary"
	ActionPlayerRetirement    Action = "player_retirement"
	ActionOfficialBirthday    Action = "official_birthday"
	ActionOfficialPromotion   Action = "official_promotion"
	ActionOfficialAchievement Action = "official_achievement"
)

var knownActions = map[Action]struct{}{
	ActionMatchSummary:        {},
	ActionMatchResult:         {},
	ActionTossResult:          {},
	ActionMatchScheduled:      {},
	ActionPlayerBirthday:      {},
	ActionPlayerAnniversary:   {},
	ActionPlayerRetirement:    {},
	ActionOfficialBirthday:    {},
	ActionOfficialPromotion:   {},
	ActionOfficialAchievement: {},
}

// IsValid checks if the action is known.
func (a Action) IsValid() bool {
	_, ok := knownActions[a]
	return ok
}

// Network is a category of publishing channels.
type Network string

// Networks.
const (
	NetworkSocialMedia Network = "social-media"
	NetworkEmail       Network = "email"
)

// IsValid checks if the network is known.
func (n Network) IsValid() bool {
	return n == NetworkSocialMedia || n == NetworkEmail
}

// Channel is a named external publishing target.
type Channel string

// Channels.
const (
	ChannelFacebook  Channel = "facebook"
	ChannelInstagram Channel = "instagram"
	ChannelTwitter   Channel = "twitter"
)

// IsValid checks if the channel is known.
// A known channel does not imply a publisher is configured for it.
func (c Channel) IsValid() bool {
	return c == ChannelFacebook || c == ChannelInstagram || c == ChannelTwitter
}

// Status is the delivery status of a post.
type Status string

// Statuses. NotSent is initial, Sent is terminal.
const (
	StatusNotSent Status = "not-sent"
	StatusSent    Status = "sent"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	return s == StatusNotSent || s == StatusSent
}

// Date and time layouts of the display schedule fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Image is the media attached to a post.
type Image struct {
	URL string `json:"url"`
}

// Post is a content item scheduled for publication on one or more channels.
// ScheduleDateTime is authoritative; ScheduleDate and ScheduleTime are its
// calendar-timezone rendering and must stay consistent with it.
type Post struct {
	ID                string     `json:"id"`
	DataType          DataType   `json:"data_type"`
	TargetID          string     `json:"target_id"`
	Action            Action     `json:"action"`
	Networks          []Network  `json:"networks"`
	Channels          []Channel  `json:"channels"`
	DeliveredChannels []Channel  `json:"delivered_channels"`
	Status            Status     `json:"status"`
	Content           string     `json:"content"`
	Image             Image      `json:"image"`
	ScheduleDate      string     `json:"schedule_date"`
	ScheduleTime      string     `json:"schedule_time"`
	ScheduleDateTime  time.Time  `json:"schedule_date_time"`
	SentAt            *time.Time `json:"sent_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsDue reports whether the post should be dispatched at now.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == StatusNotSent && !p.ScheduleDateTime.After(now)
}

// PendingChannels returns the requested channels not yet delivered.
func (p *Post) PendingChannels() []Channel {
	delivered := make(map[Channel]struct{}, len(p.DeliveredChannels))
	for _, ch := range p.DeliveredChannels {
		delivered[ch] = struct{}{}
	}

	pending := make([]Channel, 0, len(p.Channels))
	for _, ch := range p.Channels {
		if _, ok := delivered[ch]; !ok {
			pending = append(pending, ch)
		}
	}
	return pending
}

// DeliveredRequested returns the delivered channels that are still requested.
// Channels removed from the post after delivery are left out.
func (p *Post) DeliveredRequested() []Channel {
	result := make([]Channel, 0, len(p.DeliveredChannels))
	for _, ch := range p.DeliveredChannels {
		if slices.Contains(p.Channels, ch) {
			result = append(result, ch)
		}
	}
	return result
}

// SetSchedule sets the authoritative instant and derives the display fields in loc.
func (p *Post) SetSchedule(at time.Time, loc *time.Location) {
	local := at.In(loc)
	p.ScheduleDateTime = at
	p.ScheduleDate = local.Format(DateLayout)
	p.ScheduleTime = local.Format(TimeLayout)
}
