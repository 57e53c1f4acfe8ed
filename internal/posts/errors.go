package posts

import "errors"

// Repository errors.
var (
	ErrPostNotFound = errors.New("post not found")
)

// Validation errors.
var (
	ErrInvalidPost       = errors.New("invalid post")
	ErrScheduleMismatch  = errors.New("schedule date and time do not match schedule date time")
	ErrScheduleInPast    = errors.New("schedule date is in the past")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrInvalidPagination = errors.New("invalid pagination")
)

// ErrBucketOutOfRange is returned when a post found for a window has a
// calendar day outside of that window.
var ErrBucketOutOfRange = errors.New("post outside of calendar window")
