package posts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bissquit/post-scheduler/internal/domain"
)

// Values is a filter value set. It decodes from a single JSON string or an
// array of strings.
type Values[T ~string] []T

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = nil
		return nil
	}

	if len(data) > 0 && data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*v = many
		return nil
	}

	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*v = Values[T]{one}
	return nil
}

// CalendarFilter narrows a calendar window query.
type CalendarFilter struct {
	DataType Values[domain.DataType] `json:"data_type"`
	Status   Values[domain.Status]   `json:"status"`
	Networks Values[domain.Network]  `json:"networks"`
	Channels Values[domain.Channel]  `json:"channels"`
	TargetID Values[string]          `json:"target_id"`
}

func (f CalendarFilter) apply(q *Query) error {
	if err := checkValues("data_type", f.DataType); err != nil {
		return err
	}
	if err := checkValues("status", f.Status); err != nil {
		return err
	}
	if err := checkValues("networks", f.Networks); err != nil {
		return err
	}
	if err := checkValues("channels", f.Channels); err != nil {
		return err
	}

	q.DataTypes = f.DataType
	q.Statuses = f.Status
	q.Networks = f.Networks
	q.Channels = f.Channels
	q.TargetIDs = f.TargetID
	return nil
}

// Filter is the set of recognized options of a flat post search.
type Filter struct {
	CalendarFilter
	Action Values[domain.Action] `json:"action"`

	// ScheduleDate matches one display day, YYYY-MM-DD.
	ScheduleDate string `json:"schedule_date"`
	// ScheduleTime matches a display time prefix: "HH", "HH:MM" or "HH:MM:SS".
	ScheduleTime string `json:"schedule_time"`
	// ScheduleDateTime matches an RFC 3339 instant to the second.
	ScheduleDateTime string `json:"schedule_date_time"`
}

// Query converts the filter into a store query.
func (f Filter) Query() (Query, error) {
	var q Query
	if err := f.CalendarFilter.apply(&q); err != nil {
		return Query{}, err
	}
	if err := checkValues("action", f.Action); err != nil {
		return Query{}, err
	}
	q.Actions = f.Action

	if f.ScheduleDate != "" {
		if _, err := time.Parse(domain.DateLayout, f.ScheduleDate); err != nil {
			return Query{}, fmt.Errorf("%w: schedule_date %q", ErrInvalidFilter, f.ScheduleDate)
		}
		q.ScheduleDate = f.ScheduleDate
	}

	if f.ScheduleTime != "" {
		prefix, err := timePrefix(f.ScheduleTime)
		if err != nil {
			return Query{}, err
		}
		q.ScheduleTimePrefix = prefix
	}

	if f.ScheduleDateTime != "" {
		at, err := time.Parse(time.RFC3339, f.ScheduleDateTime)
		if err != nil {
			return Query{}, fmt.Errorf("%w: schedule_date_time %q", ErrInvalidFilter, f.ScheduleDateTime)
		}
		q.ScheduleDateTime = &at
	}

	return q, nil
}

// timePrefix normalizes "9", "9:5" or "09:05:00" into a zero-padded prefix
// of HH:MM:SS.
func timePrefix(value string) (string, error) {
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return "", fmt.Errorf("%w: schedule_time %q", ErrInvalidFilter, value)
	}

	limits := [3]int{23, 59, 59}
	padded := make([]string, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return "", fmt.Errorf("%w: schedule_time %q", ErrInvalidFilter, value)
		}
		padded[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(padded, ":"), nil
}

type validatable interface {
	~string
	IsValid() bool
}

func checkValues[T validatable](field string, values []T) error {
	for _, v := range values {
		if !v.IsValid() {
			return fmt.Errorf("%w: unknown %s %q", ErrInvalidFilter, field, v)
		}
	}
	return nil
}
