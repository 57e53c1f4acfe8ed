// Package timeframe resolves symbolic calendar frames into concrete time windows.
package timeframe

import (
	"errors"
	"fmt"
	"time"
)

// Frame is a symbolic calendar granularity.
type Frame string

// Frames.
const (
	FrameYear    Frame = "year"
	FrameQuarter Frame = "quarter"
	FrameMonth   Frame = "month"
	FrameWeek    Frame = "week"
	FrameDate    Frame = "date"
)

// Resolution errors.
var (
	ErrInvalidTimeFrame       = errors.New("invalid time frame")
	ErrInvalidTimeFrameParams = errors.New("invalid time frame parameters")
)

// dayLayout is the bucket key and date parameter format.
const dayLayout = "2006-01-02"

// Params carries the frame-specific parameters. Only the fields relevant to
// the frame are read.
type Params struct {
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
	Month   int    `json:"month"`
	Week    int    `json:"week"`
	Date    string `json:"date"`
}

// Window is a calendar interval with both ends inclusive.
// End is the last millisecond before the day after the range begins.
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseFrame converts a frame tag into a Frame.
func ParseFrame(tag string) (Frame, error) {
	switch f := Frame(tag); f {
	case FrameYear, FrameQuarter, FrameMonth, FrameWeek, FrameDate:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeFrame, tag)
}

// Resolve maps a frame and its parameters to a window in loc.
func Resolve(frame Frame, params Params, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}

	switch frame {
	case FrameDate:
		// Parsed in UTC for the civil date only: midnight may not exist in loc.
		day, err := time.Parse(dayLayout, params.Date)
		if err != nil {
			return Window{}, fmt.Errorf("%w: date %q", ErrInvalidTimeFrameParams, params.Date)
		}
		return civil(day.Date()).span(1, loc), nil

	case FrameWeek:
		if err := checkYear(params.Year); err != nil {
			return Window{}, err
		}
		if params.Week < 1 || params.Week > isoWeeksInYear(params.Year) {
			return Window{}, fmt.Errorf("%w: week %d of %d", ErrInvalidTimeFrameParams, params.Week, params.Year)
		}
		monday := isoWeekOneMonday(params.Year).AddDate(0, 0, (params.Week-1)*7)
		return civil(monday.Date()).span(7, loc), nil

	case FrameMonth:
		if err := checkYear(params.Year); err != nil {
			return Window{}, err
		}
		if params.Month < 1 || params.Month > 12 {
			return Window{}, fmt.Errorf("%w: month %d", ErrInvalidTimeFrameParams, params.Month)
		}
		return months(params.Year, time.Month(params.Month), 1, loc), nil

	case FrameQuarter:
		if err := checkYear(params.Year); err != nil {
			return Window{}, err
		}
		if params.Quarter < 1 || params.Quarter > 4 {
			return Window{}, fmt.Errorf("%w: quarter %d", ErrInvalidTimeFrameParams, params.Quarter)
		}
		first := time.Month((params.Quarter-1)*3 + 1)
		return months(params.Year, first, 3, loc), nil

	case FrameYear:
		if err := checkYear(params.Year); err != nil {
			return Window{}, err
		}
		return months(params.Year, time.January, 12, loc), nil
	}

	return Window{}, fmt.Errorf("%w: %q", ErrInvalidTimeFrame, frame)
}

// Days returns every calendar day in the window as YYYY-MM-DD, in order.
func (w Window) Days() []string {
	last := w.End.Format(dayLayout)
	keys := make([]string, 0, 31)
	for d := civil(w.Start.Date()); ; d = d.next() {
		key := d.key()
		keys = append(keys, key)
		if key >= last {
			return keys
		}
	}
}

// Contains reports whether t falls within the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DayKey returns the bucket key of t in the window's location.
func (w Window) DayKey(t time.Time) string {
	return t.In(w.Start.Location()).Format(dayLayout)
}

func checkYear(year int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidTimeFrameParams, year)
	}
	return nil
}

// civilDate is a calendar day independent of any location. It is held as
// UTC noon so day arithmetic never meets a DST transition.
type civilDate struct {
	noon time.Time
}

func civil(year int, month time.Month, day int) civilDate {
	return civilDate{noon: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

func (d civilDate) next() civilDate {
	return civilDate{noon: d.noon.AddDate(0, 0, 1)}
}

func (d civilDate) key() string {
	return d.noon.Format(dayLayout)
}

// span returns the window covering n days from d in loc.
func (d civilDate) span(n int, loc *time.Location) Window {
	return d.spanTo(civilDate{noon: d.noon.AddDate(0, 0, n-1)}, loc)
}

// start returns the first instant of d in loc. Where a DST change skips
// midnight the day begins at the transition.
func (d civilDate) start(loc *time.Location) time.Time {
	y, m, day := d.noon.Date()
	midnight := time.Date(y, m, day, 0, 0, 0, 0, loc)
	if my, mm, md := midnight.Date(); my == y && mm == m && md == day {
		return midnight
	}
	transition, _ := time.Date(y, m, day, 12, 0, 0, 0, loc).ZoneBounds()
	if transition.IsZero() {
		return midnight
	}
	return transition
}

// months returns the window spanning n calendar months starting at year/first.
func months(year int, first time.Month, n int, loc *time.Location) Window {
	// Day 0 of the following month normalizes to the last day of the range.
	last := civil(year, first+time.Month(n), 0)
	return civil(year, first, 1).spanTo(last, loc)
}

// spanTo returns the window from d through last, both inclusive.
func (d civilDate) spanTo(last civilDate, loc *time.Location) Window {
	return Window{Start: d.start(loc), End: last.next().start(loc).Add(-time.Millisecond)}
}

// isoWeekOneMonday returns the Monday of ISO week 1, the week containing January 4th.
func isoWeekOneMonday(year int) time.Time {
	jan4 := time.Date(year, time.January, 4, 12, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset)
}

// isoWeeksInYear returns 52 or 53. December 28th always lies in the last ISO week.
func isoWeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}
