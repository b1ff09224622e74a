package board

import (
	"errors"
	"fmt"

	"github.com/mineworlds/leaderboard/internal/domain/model"
)

var (
	// ErrNotFound is returned when a single-account query matches nothing.
	ErrNotFound = errors.New("account not found")

	// ErrNoTimeframes is returned when a dispatcher is built without boards.
	ErrNoTimeframes = errors.New("no timeframe boards configured")
)

// UpdateError reports a partially or fully failed batch apply. Failed holds
// the updates that did not make it into the board.
type UpdateError struct {
	Total  int
	Failed []*model.MiningUpdate
	Err    error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("applied %d of %d updates: %v", e.Total-len(e.Failed), e.Total, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }
