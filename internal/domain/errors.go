package domain

import "errors"

var (
	// ErrConfiguration marks a missing credential or invalid setting; never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransport marks network, timeout, or upstream status failures.
	ErrTransport = errors.New("transport error")
	// ErrParse marks an upstream payload that could not be interpreted.
	ErrParse = errors.New("parse error")
	// ErrNoMatch is returned when filtering leaves no listing for the query.
	ErrNoMatch = errors.New("no matching products found")
	// ErrNoData is returned when no source produced any listing.
	ErrNoData = errors.New("no product data found")
	// ErrInvalidQuery rejects blank product names.
	ErrInvalidQuery = errors.New("please provide a valid product name")
)

// FailureKind is the classification surfaced to callers of the pipeline.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureConfiguration FailureKind = "configuration"
	FailureNoData        FailureKind = "no_data"
	FailureNoMatch       FailureKind = "no_match"
	FailureInvalidQuery  FailureKind = "invalid_query"
	FailureInternal      FailureKind = "internal"
)

// Classify maps an error onto the caller-facing failure kinds.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrConfiguration):
		return FailureConfiguration
	case errors.Is(err, ErrInvalidQuery):
		return FailureInvalidQuery
	case errors.Is(err, ErrNoMatch):
		return FailureNoMatch
	case errors.Is(err, ErrNoData):
		return FailureNoData
	default:
		return FailureInternal
	}
}

// Recoverable reports whether a fallback path may absorb err. Only
// configuration errors are fatal: no substitute source can fix them.
func Recoverable(err error) bool {
	return !errors.Is(err, ErrConfiguration)
}
