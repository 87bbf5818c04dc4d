// Package export renders reports for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"PriceScanner/internal/domain"
)

// Format is a download encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat rejects anything but json and csv.
var ErrUnsupportedFormat = errors.New("unsupported format")

const (
	utf8BOM    = "\ufeff"
	isoMillis  = "2006-01-02T15:04:05.000Z07:00"
	filePrefix = "price-data-"
)

// ParseFormat accepts a case-insensitive format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ContentType is the media type sent with a download.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename names a download generated at now.
func Filename(f Format, now time.Time) string {
	return filePrefix + strconv.FormatInt(now.UnixMilli(), 10) + "." + string(f)
}

// Write encodes report in format f.
func Write(w io.Writer, f Format, report domain.Report) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatCSV:
		return WriteCSV(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// WriteJSON writes the report field for field, indented.
func WriteJSON(w io.Writer, report domain.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

// WriteCSV writes a UTF-8 BOM, one row per supplier and a trailing
// statistics block.
func WriteCSV(w io.Writer, report domain.Report) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	rows := [][]string{{"Product Name", "Retailer", "Price", "Link"}}
	for _, s := range report.Suppliers {
		rows = append(rows, []string{report.ProductName, s.Name, formatPrice(s.Price), s.URL})
	}
	rows = append(rows,
		nil,
		[]string{"Statistics"},
		[]string{"Average Price", formatPrice(report.AveragePrice)},
		[]string{"Highest Price", formatPrice(report.HighestPrice)},
		[]string{"Lowest Price", formatPrice(report.LowestPrice)},
		[]string{"Fetched Time", report.GeneratedAt.UTC().Format(isoMillis)},
	)

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
