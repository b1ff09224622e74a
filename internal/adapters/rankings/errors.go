package rankings

import "errors"

var (
	// ErrMemberNotFound is returned when a score is requested for a member
	// that is not in the collection.
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidPage is returned when a listing is requested with a negative
	// offset or a non-positive limit.
	ErrInvalidPage = errors.New("invalid page bounds")

	// ErrUnknownMetric is returned when a query names a metric the index
	// does not maintain a collection for.
	ErrUnknownMetric = errors.New("unknown ranking metric")
)
