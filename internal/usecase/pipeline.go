package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"PriceScanner/internal/domain"
	"PriceScanner/internal/logging"
	"PriceScanner/internal/ports"
)

// PipelineDeps wires all driven adapters into the query pipeline.
type PipelineDeps struct {
	Source     ports.ListingSource
	Cache      ports.ListingCache
	Aggregator ports.Aggregator
	Logger     *slog.Logger
	Now        func() time.Time
	NewID      func() string
}

// Pipeline sequences cache lookup, source fetch and aggregation for one query.
type Pipeline struct {
	source     ports.ListingSource
	cache      ports.ListingCache
	aggregator ports.Aggregator
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:     deps.Source,
		cache:      deps.Cache,
		aggregator: deps.Aggregator,
		logger:     deps.Logger,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Run is the single entry point for callers that only need the report.
func (p *Pipeline) Run(ctx context.Context, productName string) (domain.Report, error) {
	run := p.Execute(ctx, productName)
	if run.Err != nil {
		return domain.Report{}, run.Err
	}
	return *run.Report, nil
}

// Execute drives one query through
// pending -> (cache_hit | fetching) -> aggregating -> completed | failed
// and returns the full record. It never panics.
func (p *Pipeline) Execute(ctx context.Context, productName string) (run domain.QueryRun) {
	now := p.now().UTC()
	run = domain.QueryRun{
		ID:          p.newID(),
		ProductName: strings.TrimSpace(productName),
		Status:      domain.StatusPending,
		History:     []domain.QueryStatus{domain.StatusPending},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	log := p.runLogger(run)

	defer func() {
		if r := recover(); r != nil {
			run = p.fail(log, run, fmt.Errorf("internal error: %v", r))
		}
	}()

	if run.ProductName == "" {
		return p.fail(log, run, domain.ErrInvalidQuery)
	}

	listings, origin, err := p.collect(ctx, log, &run)
	if err != nil {
		return p.fail(log, run, err)
	}
	run.Origin = origin

	run = p.transition(log, run, domain.StatusAggregating)
	if p.aggregator == nil {
		return p.fail(log, run, fmt.Errorf("%w: aggregator is not configured", domain.ErrConfiguration))
	}

	report, err := p.aggregator.Aggregate(ctx, run.ProductName, listings)
	if err != nil {
		return p.fail(log, run, err)
	}
	if err := report.Validate(); err != nil {
		return p.fail(log, run, fmt.Errorf("inconsistent report: %w", err))
	}

	run.Report = &report
	return p.transition(log, run, domain.StatusCompleted)
}

// collect resolves listings from the cache or the source. Only live
// listings are written back to the cache.
func (p *Pipeline) collect(ctx context.Context, log *slog.Logger, run *domain.QueryRun) ([]domain.RawListing, domain.Origin, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, run.ProductName); ok && len(cached) > 0 {
			*run = p.transition(log, *run, domain.StatusCacheHit)
			return cached, domain.OriginCache, nil
		}
	}

	*run = p.transition(log, *run, domain.StatusFetching)
	if p.source == nil {
		return nil, "", fmt.Errorf("%w: listing source is not configured", domain.ErrConfiguration)
	}

	result, err := p.source.Fetch(ctx, run.ProductName)
	if err != nil {
		return nil, "", err
	}
	if result.Degraded != nil {
		log.Warn("source degraded", "origin", result.Origin, "error", result.Degraded)
	}
	if len(result.Listings) == 0 {
		return nil, "", fmt.Errorf("%w for %q", domain.ErrNoData, run.ProductName)
	}

	if p.cache != nil && result.Origin == domain.OriginLive {
		p.cache.Put(ctx, run.ProductName, result.Listings)
	}

	log.Debug("listings collected", "origin", result.Origin, "count", len(result.Listings))
	return result.Listings, result.Origin, nil
}

func (p *Pipeline) transition(log *slog.Logger, run domain.QueryRun, status domain.QueryStatus) domain.QueryRun {
	run.Status = status
	run.History = append(run.History, status)
	run.UpdatedAt = p.now().UTC()
	log.Debug("query transition", "status", status)
	return run
}

func (p *Pipeline) fail(log *slog.Logger, run domain.QueryRun, err error) domain.QueryRun {
	run = p.transition(log, run, domain.StatusFailed)
	run.Err = err
	run.Failure = domain.Classify(err)
	run.ErrorMessage = err.Error()
	run.Report = nil

	if run.Failure == domain.FailureInternal || run.Failure == domain.FailureConfiguration {
		log.Error("query failed", "failure", run.Failure, "error", err)
	} else {
		log.Info("query failed", "failure", run.Failure, "error", err)
	}
	return run
}

func (p *Pipeline) runLogger(run domain.QueryRun) *slog.Logger {
	base := p.logger
	if base == nil {
		base = logging.Discard()
	}
	return base.With("query_id", run.ID, "query", run.ProductName)
}
