package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a data analyst specializing in retail price data.

I have scraped the following product data from Australian retailers for the product: "{{.Query}}"

Scraped Data:
{{.Listings}}

Please analyze this data and:
1. Filter out any products that don't match "{{.Query}}" (remove irrelevant or dissimilar products)
2. Keep only the most relevant matches
3. Calculate the average price, highest price, and lowest price
4. Format the output as JSON

Return ONLY valid JSON in this exact format (no markdown, no code blocks, just raw JSON):
{
  "product_name": "{{.Query}}",
  "average_price": <number>,
  "highest_price": <number>,
  "lowest_price": <number>,
  "suppliers": [
    {
      "name": "<supplier name>",
      "price": <number>,
      "url": "<url or empty string>"
    }
  ],
  "scraped_at": "{{.Now}}"
}`))

// RemoteAggregator delegates matching and statistics to a chat model.
type RemoteAggregator struct {
	chat    ports.ChatClient
	timeout time.Duration
	now     func() time.Time
}

var _ ports.Aggregator = (*RemoteAggregator)(nil)

// NewRemoteAggregator wires chat; timeout bounds one completion call.
func NewRemoteAggregator(chat ports.ChatClient, timeout time.Duration, now func() time.Time) *RemoteAggregator {
	if now == nil {
		now = time.Now
	}
	return &RemoteAggregator{chat: chat, timeout: timeout, now: now}
}

// remoteReport uses pointers so absent numeric fields are detectable.
type remoteReport struct {
	ProductName  string   `json:"product_name"`
	AveragePrice *float64 `json:"average_price"`
	HighestPrice *float64 `json:"highest_price"`
	LowestPrice  *float64 `json:"lowest_price"`
	Suppliers    []struct {
		Name  string   `json:"name"`
		Price *float64 `json:"price"`
		URL   string   `json:"url"`
	} `json:"suppliers"`
}

// Aggregate asks the model for a report and validates the reply.
func (r *RemoteAggregator) Aggregate(ctx context.Context, query string, listings []domain.RawListing) (domain.Report, error) {
	if r.chat == nil {
		return domain.Report{}, fmt.Errorf("%w: chat client is not configured", domain.ErrConfiguration)
	}

	prompt, err := r.buildPrompt(query, listings)
	if err != nil {
		return domain.Report{}, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	reply, err := r.chat.Complete(ctx, prompt)
	if err != nil {
		return domain.Report{}, err
	}

	report, err := ParseReport(reply)
	if err != nil {
		return domain.Report{}, err
	}
	if report.ProductName == "" {
		report.ProductName = query
	}
	report.GeneratedAt = r.now().UTC()
	return report, nil
}

func (r *RemoteAggregator) buildPrompt(query string, listings []domain.RawListing) (string, error) {
	data, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode listings: %w", err)
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, map[string]string{
		"Query":    query,
		"Listings": string(data),
		"Now":      r.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// ParseReport decodes a model reply into a validated report.
// Code fences are stripped; anything else around the object is rejected.
func ParseReport(reply string) (domain.Report, error) {
	text := stripCodeFences(reply)

	dec := json.NewDecoder(strings.NewReader(text))
	var raw remoteReport
	if err := dec.Decode(&raw); err != nil {
		return domain.Report{}, fmt.Errorf("%w: decode model reply: %v", domain.ErrParse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.Report{}, fmt.Errorf("%w: trailing content after model reply", domain.ErrParse)
	}

	if raw.AveragePrice == nil || raw.HighestPrice == nil || raw.LowestPrice == nil {
		return domain.Report{}, fmt.Errorf("%w: model reply misses price fields", domain.ErrParse)
	}

	report := domain.Report{
		ProductName:  strings.TrimSpace(raw.ProductName),
		AveragePrice: *raw.AveragePrice,
		HighestPrice: *raw.HighestPrice,
		LowestPrice:  *raw.LowestPrice,
		Suppliers:    make([]domain.Supplier, 0, len(raw.Suppliers)),
	}
	for i, s := range raw.Suppliers {
		if s.Price == nil || strings.TrimSpace(s.Name) == "" {
			return domain.Report{}, fmt.Errorf("%w: supplier %d is incomplete", domain.ErrParse, i)
		}
		report.Suppliers = append(report.Suppliers, domain.Supplier{
			Name:  strings.TrimSpace(s.Name),
			Price: *s.Price,
			URL:   strings.TrimSpace(s.URL),
		})
	}

	if err := report.Validate(); err != nil {
		return domain.Report{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return report, nil
}

func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
