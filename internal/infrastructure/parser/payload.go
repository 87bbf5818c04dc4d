package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"unicode/utf8"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/pricing"
)

const (
	maxNameRunes     = 150
	maxSupplierRunes = 100
	maxBodyBytes     = 5 << 20
)

// Upstream payloads are decoded into generic maps; every accessor below
// tolerates missing keys and unexpected types.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s := firstString(v, "name", "title"); s != "" {
				return s
			}
		}
	}
	return ""
}

// priceOf interprets a structured or free-text price value.
func priceOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || !pricing.Plausible(t) {
			return 0, false
		}
		return t, true
	case json.Number:
		f, err := t.Float64()
		if err != nil || !pricing.Plausible(f) {
			return 0, false
		}
		return f, true
	case string:
		return pricing.ExtractPrice(t)
	case map[string]any:
		return firstPrice(t, "value", "extracted_value", "price", "amount")
	}
	return 0, false
}

func firstPrice(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if p, ok := priceOf(m[key]); ok {
			return p, true
		}
	}
	return 0, false
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

func newListing(name string, price float64, supplier, link string) domain.RawListing {
	return domain.RawListing{
		ProductName: truncateRunes(strings.Join(strings.Fields(name), " "), maxNameRunes),
		Price:       price,
		Supplier:    truncateRunes(strings.TrimSpace(supplier), maxSupplierRunes),
		URL:         strings.TrimSpace(link),
	}
}

// decodeJSONResponse checks the status and decodes a JSON object body.
func decodeJSONResponse(resp *http.Response, provider string) (map[string]any, error) {
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned %s: %s",
			domain.ErrTransport, provider, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var payload map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", domain.ErrParse, provider, err)
	}
	return payload, nil
}
