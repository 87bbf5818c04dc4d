package domain

import "time"

// QueryStatus enumerates pipeline milestones for one request.
type QueryStatus string

const (
	StatusPending     QueryStatus = "pending"
	StatusCacheHit    QueryStatus = "cache_hit"
	StatusFetching    QueryStatus = "fetching"
	StatusAggregating QueryStatus = "aggregating"
	StatusCompleted   QueryStatus = "completed"
	StatusFailed      QueryStatus = "failed"
)

// QueryRun records how a single product query travelled through the pipeline.
type QueryRun struct {
	ID           string        `json:"id"`
	ProductName  string        `json:"product_name"`
	Status       QueryStatus   `json:"status"`
	History      []QueryStatus `json:"history"`
	Origin       Origin        `json:"origin,omitempty"`
	Report       *Report       `json:"result,omitempty"`
	Failure      FailureKind   `json:"failure,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Err error `json:"-"`
}
