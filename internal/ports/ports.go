package ports

import (
	"context"

	"PriceScanner/internal/domain"
)

// ListingSource pulls candidate retail listings for a product query.
// Recoverable upstream failures are reported inside FetchResult.Degraded;
// the returned error is reserved for failures no fallback can absorb.
type ListingSource interface {
	Fetch(ctx context.Context, query string) (domain.FetchResult, error)
}

// ListingCache stores raw listings per query for a bounded time.
type ListingCache interface {
	Get(ctx context.Context, query string) ([]domain.RawListing, bool)
	Put(ctx context.Context, query string, listings []domain.RawListing)
}

// CacheStore is the backing store behind ListingCache (memory, file, SQL, Redis).
// Stores only persist entries; expiry policy lives in the cache.
type CacheStore interface {
	Load(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Save(ctx context.Context, entry domain.CacheEntry) error
	Delete(ctx context.Context, key string) error
}

// Aggregator turns raw listings into a report for the query.
type Aggregator interface {
	Aggregate(ctx context.Context, query string, listings []domain.RawListing) (domain.Report, error)
}

// ChatClient sends a single prompt to an LLM API (e.g., ChatGPT) and returns the reply text.
type ChatClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
