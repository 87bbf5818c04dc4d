package pricing

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxPlausiblePrice bounds extracted values; anything at or above it is noise.
	MaxPlausiblePrice = 100000
)

const amount = `([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]+)?|[0-9]+(?:\.[0-9]+)?)`

// pricePatterns are tried in order; the first plausible match wins.
var pricePatterns = []*regexp.Regexp{
	// $12.34, A$1,234.50, €9.99
	regexp.MustCompile(`(?:AU?\$|NZ\$|US\$|\$|£|€)\s*` + amount),
	// AUD 12.34
	regexp.MustCompile(`(?i)\b(?:AUD|USD|NZD|EUR|GBP)\s*` + amount),
	// 12.34 dollars
	regexp.MustCompile(`(?i)` + amount + `\s*(?:dollars?|bucks)\b`),
	// Price: 12.34
	regexp.MustCompile(`(?i)price\s*[:=\-]?\s*(?:AUD\s*)?\$?\s*` + amount),
	// bare "12.34" as found in structured price fields
	regexp.MustCompile(`^` + amount + `$`),
}

// ExtractPrice parses the first plausible price out of free text.
// It reports false when no pattern yields a value in (0, MaxPlausiblePrice).
func ExtractPrice(text string) (float64, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return 0, false
	}

	for _, pattern := range pricePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if v, ok := parseAmount(match[1]); ok {
				return v, true
			}
		}
	}

	return 0, false
}

// Plausible reports whether v is inside the accepted price range.
func Plausible(v float64) bool {
	return v > 0 && v < MaxPlausiblePrice
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if !Plausible(v) {
		return 0, false
	}
	return v, true
}
