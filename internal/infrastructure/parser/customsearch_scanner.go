package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/pricing"
	"PriceScanner/internal/scanner"
)

// CustomSearchScanner queries the Google Custom Search JSON API and keeps
// only results hosted by allow-listed retailers.
type CustomSearchScanner struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	engineID   string
	country    string
	maxResults int
	allowed    map[string]string
	logger     *slog.Logger
}

var _ scanner.Scanner = (*CustomSearchScanner)(nil)

// NewCustomSearchScanner wires an HTTP client and the retailer allow-list (domain -> display name).
func NewCustomSearchScanner(client *http.Client, cfg config.CustomSearchConfig, src config.SourceConfig, log *slog.Logger) *CustomSearchScanner {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	allowed := make(map[string]string, len(cfg.AllowedDomains))
	for d, name := range cfg.AllowedDomains {
		allowed[normalizeHost(d)] = name
	}

	return &CustomSearchScanner{
		client:     client,
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		engineID:   cfg.EngineID,
		country:    src.Country,
		maxResults: maxResultsOrDefault(src.MaxResults),
		allowed:    allowed,
		logger:     log,
	}
}

// Name identifies the strategy inside the registry.
func (c *CustomSearchScanner) Name() string {
	return "customsearch"
}

// Fetch runs one search and extracts priced listings from allow-listed retailers.
func (c *CustomSearchScanner) Fetch(ctx context.Context, query string) ([]domain.RawListing, error) {
	if strings.TrimSpace(c.apiKey) == "" || strings.TrimSpace(c.engineID) == "" {
		return nil, fmt.Errorf("%w: custom search api key or engine id is not set", domain.ErrConfiguration)
	}

	parsed, err := url.Parse(c.endpoint)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid custom search endpoint %q", domain.ErrConfiguration, c.endpoint)
	}

	q := parsed.Query()
	q.Set("key", c.apiKey)
	q.Set("cx", c.engineID)
	q.Set("q", query)
	// The API caps num at 10 per page.
	q.Set("num", strconv.Itoa(min(c.maxResults, 10)))
	if c.country != "" {
		q.Set("gl", c.country)
	}
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrConfiguration, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: custom search request: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	payload, err := decodeJSONResponse(resp, "custom search")
	if err != nil {
		return nil, err
	}

	return c.extractListings(payload), nil
}

func (c *CustomSearchScanner) extractListings(payload map[string]any) []domain.RawListing {
	items := asSlice(payload["items"])
	if len(items) > c.maxResults {
		items = items[:c.maxResults]
	}

	listings := make([]domain.RawListing, 0, len(items))
	for _, raw := range items {
		item := asMap(raw)
		if item == nil {
			continue
		}

		link := firstString(item, "link")
		supplier, ok := c.supplierFor(link, firstString(item, "displayLink"))
		if !ok {
			c.debug("skip result outside allow-list", "link", link)
			continue
		}

		title := firstString(item, "title")
		if title == "" {
			continue
		}

		price, ok := pagemapPrice(asMap(item["pagemap"]))
		if !ok {
			price, ok = pricing.ExtractPrice(title + " " + firstString(item, "snippet"))
		}
		if !ok {
			continue
		}

		listings = append(listings, newListing(title, price, supplier, link))
	}

	c.debug("custom search produced listings", "count", len(listings), "considered", len(items))
	return listings
}

// supplierFor resolves a result host against the allow-list, including subdomains.
func (c *CustomSearchScanner) supplierFor(link, displayLink string) (string, bool) {
	host := displayLink
	if parsed, err := url.Parse(link); err == nil && parsed.Hostname() != "" {
		host = parsed.Hostname()
	}
	host = normalizeHost(host)
	if host == "" {
		return "", false
	}

	for d, name := range c.allowed {
		if host == d || strings.HasSuffix(host, "."+d) {
			if name == "" {
				name = d
			}
			return name, true
		}
	}
	return "", false
}

func pagemapPrice(pagemap map[string]any) (float64, bool) {
	if pagemap == nil {
		return 0, false
	}

	for _, section := range []string{"offer", "product"} {
		for _, raw := range asSlice(pagemap[section]) {
			if p, ok := firstPrice(asMap(raw), "price", "lowprice"); ok {
				return p, true
			}
		}
	}

	for _, raw := range asSlice(pagemap["metatags"]) {
		if p, ok := firstPrice(asMap(raw), "product:price:amount", "og:price:amount"); ok {
			return p, true
		}
	}

	return 0, false
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimPrefix(host, "www.")
}

func (c *CustomSearchScanner) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
