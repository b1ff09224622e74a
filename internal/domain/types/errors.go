package types

import "errors"

// Sentinel kinds for enumeration and naming errors.
var (
	ErrUnknownTimeframe      = errors.New("unknown timeframe")
	ErrUnknownMetric         = errors.New("unknown ranking metric")
	ErrInvalidCollectionName = errors.New("invalid collection name")
)
