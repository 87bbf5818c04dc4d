package parser

import (
	"context"
	"regexp"
	"strings"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/scanner"
)

// Each separator becomes one space, so "a2  milk" does not match "a2 milk".
var nonAlnum = regexp.MustCompile(`[^a-z0-9]`)

// demoCatalog is a fixed demonstration set for degraded environments.
// It is never live data.
var demoCatalog = map[string][]domain.RawListing{
	"a2 milk": {
		{ProductName: "A2 Milk Full Cream 2L", Price: 5.50, Supplier: "Woolworths Australia", URL: "https://www.woolworths.com.au/search?q=a2+milk"},
		{ProductName: "A2 Milk Full Cream 2L", Price: 5.40, Supplier: "Coles Group Limited", URL: "https://www.coles.com.au/search?q=a2+milk"},
		{ProductName: "A2 Milk Full Cream 2L", Price: 5.95, Supplier: "Aldi Australia", URL: "https://www.aldi.com.au"},
	},
	"coca cola 1 25l": {
		{ProductName: "Coca Cola 1.25L", Price: 3.50, Supplier: "Woolworths Australia", URL: "https://www.woolworths.com.au/search?q=coca+cola"},
		{ProductName: "Coca Cola 1.25L", Price: 3.80, Supplier: "Coles Group Limited", URL: "https://www.coles.com.au/search?q=coca+cola"},
	},
}

// DemoScanner serves demonstration listings keyed by a loose query form.
type DemoScanner struct {
	catalog map[string][]domain.RawListing
}

var _ scanner.Scanner = (*DemoScanner)(nil)

// NewDemoScanner uses the built-in catalog.
func NewDemoScanner() *DemoScanner {
	return &DemoScanner{catalog: demoCatalog}
}

// Name identifies the strategy inside the registry.
func (d *DemoScanner) Name() string {
	return "demo"
}

// Fetch returns a copy of the demonstration listings for query, or none.
func (d *DemoScanner) Fetch(_ context.Context, query string) ([]domain.RawListing, error) {
	return domain.CloneListings(d.catalog[demoKey(query)]), nil
}

func demoKey(query string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(query), " "))
}
