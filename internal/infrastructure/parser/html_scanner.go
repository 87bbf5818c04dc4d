package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/pricing"
	"PriceScanner/internal/scanner"
)

const queryPlaceholder = "{query}"

// HTMLScanner scrapes retailer search pages directly and extracts product tiles.
type HTMLScanner struct {
	renderer   Renderer
	retailers  []config.RetailerConfig
	maxResults int
	logger     *slog.Logger
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires a page renderer with the configured retailers.
func NewHTMLScanner(renderer Renderer, retailers []config.RetailerConfig, maxResults int, log *slog.Logger) *HTMLScanner {
	if renderer == nil {
		renderer = NewHTTPRenderer(nil, "")
	}
	return &HTMLScanner{
		renderer:   renderer,
		retailers:  retailers,
		maxResults: maxResultsOrDefault(maxResults),
		logger:     log,
	}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Fetch walks each retailer search page until maxResults tiles were considered.
// It only fails when every retailer failed.
func (h *HTMLScanner) Fetch(ctx context.Context, query string) ([]domain.RawListing, error) {
	if len(h.retailers) == 0 {
		return nil, fmt.Errorf("%w: no retailers configured for html scanner", domain.ErrConfiguration)
	}

	var (
		results   []domain.RawListing
		failures  []error
		remaining = h.maxResults
	)

	for _, retailer := range h.retailers {
		if remaining <= 0 {
			break
		}

		pageURL, err := buildSearchURL(retailer.SearchURL, query)
		if err != nil {
			return nil, fmt.Errorf("retailer %s: %w", retailer.Name, err)
		}

		doc, err := h.fetchDocument(ctx, pageURL)
		if err != nil {
			h.warn("retailer page failed", "retailer", retailer.Name, "error", err)
			failures = append(failures, fmt.Errorf("retailer %s: %w", retailer.Name, err))
			continue
		}

		listings, considered := extractTiles(doc, retailer, pageURL, remaining)
		remaining -= considered
		h.debug("retailer produced listings", "retailer", retailer.Name, "count", len(listings), "considered", considered)
		results = append(results, listings...)
	}

	if len(failures) == len(h.retailers) {
		return nil, errors.Join(failures...)
	}

	return results, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := h.renderer.Render(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse document: %v", domain.ErrParse, err)
	}

	return doc, nil
}

// extractTiles reads up to limit product tiles and returns the priced ones
// together with the number of tiles considered.
func extractTiles(doc *goquery.Document, retailer config.RetailerConfig, pageURL string, limit int) ([]domain.RawListing, int) {
	var (
		collected  []domain.RawListing
		considered int
	)

	sel := retailer.Selectors
	doc.Find(sel.Item).EachWithBreak(func(_ int, tile *goquery.Selection) bool {
		if considered >= limit {
			return false
		}
		considered++

		listing, ok := parseTile(tile, sel, retailer.Name, pageURL)
		if ok {
			collected = append(collected, listing)
		}
		return true
	})

	return collected, considered
}

func parseTile(tile *goquery.Selection, sel config.SelectorsConfig, supplier, pageURL string) (domain.RawListing, bool) {
	title := strings.TrimSpace(tile.Find(sel.Title).First().Text())
	if title == "" {
		title, _ = tile.Find(sel.Link).First().Attr("title")
	}
	if strings.TrimSpace(title) == "" {
		return domain.RawListing{}, false
	}

	priceText := tile.Find(sel.Price).First().Text()
	price, ok := pricing.ExtractPrice(priceText)
	if !ok {
		price, ok = pricing.ExtractPrice(tile.Text())
	}
	if !ok {
		return domain.RawListing{}, false
	}

	href, _ := tile.Find(sel.Link).First().Attr("href")
	if href == "" {
		href, _ = tile.Attr("href")
	}

	return newListing(title, price, supplier, resolveLink(pageURL, href)), true
}

func resolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

func buildSearchURL(template, query string) (string, error) {
	if !strings.Contains(template, queryPlaceholder) {
		return "", fmt.Errorf("%w: search url %q has no %s placeholder", domain.ErrConfiguration, template, queryPlaceholder)
	}

	raw := strings.ReplaceAll(template, queryPlaceholder, url.QueryEscape(query))
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid search url %q", domain.ErrConfiguration, template)
	}
	return parsed.String(), nil
}

func (h *HTMLScanner) debug(msg string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}

func (h *HTMLScanner) warn(msg string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Warn(msg, args...)
	}
}
