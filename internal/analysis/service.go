package analysis

import (
	"context"
	"log/slog"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
)

// Service tries the remote strategy first and falls back to the local one
// on any remote failure.
type Service struct {
	remote ports.Aggregator
	local  ports.Aggregator
	logger *slog.Logger
}

var _ ports.Aggregator = (*Service)(nil)

// NewService wires both strategies; a nil remote means local only.
func NewService(remote, local ports.Aggregator, log *slog.Logger) *Service {
	return &Service{remote: remote, local: local, logger: log}
}

// Aggregate returns the remote report when it is usable, otherwise exactly
// what the local strategy produces for the same input.
func (s *Service) Aggregate(ctx context.Context, query string, listings []domain.RawListing) (domain.Report, error) {
	if s.remote != nil {
		report, err := s.remote.Aggregate(ctx, query, domain.CloneListings(listings))
		if err == nil {
			s.debug("remote aggregation succeeded", "query", query, "suppliers", len(report.Suppliers))
			return report, nil
		}
		s.warn("remote aggregation failed, using local strategy", "query", query, "error", err)
	}

	return s.local.Aggregate(ctx, query, listings)
}

func (s *Service) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Service) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
