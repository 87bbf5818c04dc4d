package domain

import (
	"fmt"
	"math"
	"time"
)

// RawListing is a single retailer offer as returned by a source adapter.
type RawListing struct {
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Supplier    string  `json:"supplier"`
	URL         string  `json:"url,omitempty"`
}

// Supplier is one matched offer inside a report.
type Supplier struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	URL   string  `json:"url,omitempty"`
}

// Report is the aggregated price summary handed back to callers.
type Report struct {
	ProductName  string     `json:"product_name"`
	AveragePrice float64    `json:"average_price"`
	HighestPrice float64    `json:"highest_price"`
	LowestPrice  float64    `json:"lowest_price"`
	Suppliers    []Supplier `json:"suppliers"`
	GeneratedAt  time.Time  `json:"scraped_at"`
}

// Validate rejects partial or internally inconsistent reports.
func (r Report) Validate() error {
	if len(r.Suppliers) == 0 {
		return fmt.Errorf("report has no suppliers")
	}

	for name, v := range map[string]float64{
		"average_price": r.AveragePrice,
		"highest_price": r.HighestPrice,
		"lowest_price":  r.LowestPrice,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("report field %s is not a valid price: %v", name, v)
		}
	}

	if r.LowestPrice > r.AveragePrice || r.AveragePrice > r.HighestPrice {
		return fmt.Errorf("report prices out of order: lowest=%v average=%v highest=%v",
			r.LowestPrice, r.AveragePrice, r.HighestPrice)
	}

	for i, s := range r.Suppliers {
		if math.IsNaN(s.Price) || math.IsInf(s.Price, 0) || s.Price < 0 {
			return fmt.Errorf("supplier %d has invalid price %v", i, s.Price)
		}
	}

	return nil
}

// CacheEntry is a timestamped snapshot of listings fetched for a normalised query.
type CacheEntry struct {
	Key       string       `json:"key"`
	Listings  []RawListing `json:"data"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Origin labels where the listings behind a report came from.
type Origin string

const (
	OriginLive  Origin = "live"
	OriginCache Origin = "cache"
	OriginDemo  Origin = "demo"
)

// FetchResult carries listings from a source together with the recovered
// failure, if any, that forced a degraded answer.
type FetchResult struct {
	Listings []RawListing
	Origin   Origin
	Degraded error
}

// CloneListings returns an independent copy of the slice.
func CloneListings(in []RawListing) []RawListing {
	if in == nil {
		return nil
	}
	out := make([]RawListing, len(in))
	copy(out, in)
	return out
}
