package parser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/ports"
	"PriceScanner/internal/scanner"
)

// StrategySource implements ListingSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	primary  string
	fallback string
	timeout  time.Duration
	logger   *slog.Logger
}

var _ ports.ListingSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry with the configured primary and fallback names.
func NewStrategySource(reg *scanner.Registry, cfg config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		primary:  cfg.Scanner,
		fallback: cfg.Fallback,
		timeout:  cfg.Timeout,
		logger:   log,
	}
}

// Fetch runs the primary scanner and, when it yields nothing, the fallback.
// Only configuration problems surface as an error.
func (s *StrategySource) Fetch(ctx context.Context, query string) (domain.FetchResult, error) {
	if s.registry == nil {
		return domain.FetchResult{}, fmt.Errorf("%w: scanner registry is not configured", domain.ErrConfiguration)
	}

	strategy, err := s.registry.Resolve(s.primary)
	if err != nil {
		return domain.FetchResult{}, err
	}

	s.debug("fetch listings", "scanner", strategy.Name(), "query", query)

	listings, err := s.runPrimary(ctx, strategy, query)
	result := domain.FetchResult{Listings: listings, Origin: domain.OriginLive}
	if err != nil {
		if !domain.Recoverable(err) {
			return domain.FetchResult{}, fmt.Errorf("scanner %s: %w", strategy.Name(), err)
		}
		s.warn("primary scanner degraded", "scanner", strategy.Name(), "error", err)
		result = domain.FetchResult{Origin: domain.OriginLive, Degraded: err}
	}

	if len(result.Listings) > 0 || s.fallback == "" {
		s.debug("strategy source done", "origin", result.Origin, "count", len(result.Listings))
		return result, nil
	}

	fallback, err := s.registry.Resolve(s.fallback)
	if err != nil {
		return domain.FetchResult{}, err
	}

	demo, err := fallback.Fetch(ctx, query)
	if err != nil {
		s.warn("fallback scanner failed", "scanner", fallback.Name(), "error", err)
		return result, nil
	}
	if len(demo) == 0 {
		return result, nil
	}

	s.debug("serving fallback listings", "scanner", fallback.Name(), "count", len(demo))
	return domain.FetchResult{Listings: demo, Origin: domain.OriginDemo, Degraded: result.Degraded}, nil
}

func (s *StrategySource) runPrimary(ctx context.Context, strategy scanner.Scanner, query string) ([]domain.RawListing, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return strategy.Fetch(ctx, query)
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
