package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/scanner"
)

// SearchAPIScanner queries SearchAPI.io's Google Shopping engine.
type SearchAPIScanner struct {
	client     *http.Client
	endpoint   string
	engine     string
	apiKey     string
	country    string
	language   string
	maxResults int
	logger     *slog.Logger
}

var _ scanner.Scanner = (*SearchAPIScanner)(nil)

// NewSearchAPIScanner wires an HTTP client; a nil client gets a 15s timeout.
func NewSearchAPIScanner(client *http.Client, cfg config.SearchAPIConfig, src config.SourceConfig, log *slog.Logger) *SearchAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	engine := cfg.Engine
	if engine == "" {
		engine = "google_shopping"
	}
	return &SearchAPIScanner{
		client:     client,
		endpoint:   cfg.Endpoint,
		engine:     engine,
		apiKey:     cfg.APIKey,
		country:    src.Country,
		language:   src.Language,
		maxResults: maxResultsOrDefault(src.MaxResults),
		logger:     log,
	}
}

// Name identifies the strategy inside the registry.
func (s *SearchAPIScanner) Name() string {
	return "searchapi"
}

// Fetch runs one search and extracts priced listings from the response.
func (s *SearchAPIScanner) Fetch(ctx context.Context, query string) ([]domain.RawListing, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, fmt.Errorf("%w: searchapi api key is not set", domain.ErrConfiguration)
	}

	reqURL, err := s.buildURL(query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: searchapi request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := decodeJSONResponse(resp, "searchapi")
	if err != nil {
		return nil, err
	}

	return s.extractListings(payload), nil
}

func (s *SearchAPIScanner) buildURL(query string) (string, error) {
	parsed, err := url.Parse(s.endpoint)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid searchapi endpoint %q", domain.ErrConfiguration, s.endpoint)
	}

	q := parsed.Query()
	q.Set("engine", s.engine)
	q.Set("q", query)
	q.Set("api_key", s.apiKey)
	if s.country != "" {
		q.Set("gl", s.country)
	}
	if s.language != "" {
		q.Set("hl", s.language)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func (s *SearchAPIScanner) extractListings(payload map[string]any) []domain.RawListing {
	items, defaultSupplier := asSlice(payload["shopping_results"]), "Google Shopping"
	if len(items) == 0 {
		items, defaultSupplier = asSlice(payload["search_results"]), "Online Store"
	}
	if len(items) == 0 {
		s.debug("no results in searchapi response", "keys", len(payload))
		return nil
	}

	if len(items) > s.maxResults {
		items = items[:s.maxResults]
	}

	listings := make([]domain.RawListing, 0, len(items))
	for _, raw := range items {
		item := asMap(raw)
		if item == nil {
			continue
		}

		title := firstString(item, "title", "name")
		if title == "" {
			continue
		}

		price, ok := firstPrice(item, "price", "extracted_price", "offer")
		if !ok {
			s.debug("skip item without price", "title", title)
			continue
		}

		supplier := firstString(item, "source", "seller", "merchant", "domain")
		if supplier == "" {
			supplier = defaultSupplier
		}

		listings = append(listings, newListing(title, price, supplier, firstString(item, "link", "product_link")))
	}

	s.debug("searchapi produced listings", "count", len(listings), "considered", len(items))
	return listings
}

func (s *SearchAPIScanner) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func maxResultsOrDefault(n int) int {
	if n <= 0 {
		return 10
	}
	return n
}
