package storage

import "errors"

var (
	// ErrNoUpdates is returned by the update queue when no documents are
	// waiting to be dequeued.
	ErrNoUpdates = errors.New("no queued updates")

	// ErrNotFound is returned when a single-account query matches nothing.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidRange is returned when a time-range query has a from bound
	// after its to bound.
	ErrInvalidRange = errors.New("invalid time range")
)
