package queue

import "errors"

var (
	// ErrNoUpdates is returned by Next when nothing is pending.
	ErrNoUpdates = errors.New("no pending updates")

	// ErrOverflowFull is returned by Add when the source is failing and the
	// overflow buffer cannot hold the incoming updates.
	ErrOverflowFull = errors.New("overflow buffer full")
)
