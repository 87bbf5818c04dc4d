// Package analysis turns raw listings into price reports.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
	"PriceScanner/internal/pricing"
)

// LocalAggregator matches listings by case-insensitive substring containment
// in either direction and summarises the matched prices.
type LocalAggregator struct {
	now func() time.Time
}

var _ ports.Aggregator = (*LocalAggregator)(nil)

// NewLocalAggregator uses now for the report timestamp; nil means time.Now.
func NewLocalAggregator(now func() time.Time) *LocalAggregator {
	if now == nil {
		now = time.Now
	}
	return &LocalAggregator{now: now}
}

// Aggregate never mutates listings.
func (l *LocalAggregator) Aggregate(_ context.Context, query string, listings []domain.RawListing) (domain.Report, error) {
	matched := Match(query, listings)
	if len(matched) == 0 {
		return domain.Report{}, fmt.Errorf("%w: no listing matches %q", domain.ErrNoMatch, query)
	}

	prices := make([]float64, len(matched))
	suppliers := make([]domain.Supplier, len(matched))
	for i, item := range matched {
		prices[i] = item.Price
		suppliers[i] = domain.Supplier{Name: item.Supplier, Price: item.Price, URL: item.URL}
	}

	summary := pricing.Summarize(prices)
	return domain.Report{
		ProductName:  query,
		AveragePrice: summary.Average,
		HighestPrice: summary.Highest,
		LowestPrice:  summary.Lowest,
		Suppliers:    suppliers,
		GeneratedAt:  l.now().UTC(),
	}, nil
}

// Match keeps listings whose name contains the query or is contained in it.
func Match(query string, listings []domain.RawListing) []domain.RawListing {
	needle := strings.ToLower(query)

	var matched []domain.RawListing
	for _, item := range listings {
		name := strings.ToLower(item.ProductName)
		if name == "" {
			continue
		}
		if strings.Contains(name, needle) || strings.Contains(needle, name) {
			matched = append(matched, item)
		}
	}
	return matched
}
