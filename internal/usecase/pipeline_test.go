package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"PriceScanner/internal/analysis"
	"PriceScanner/internal/cache"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/infrastructure/storage"
	"PriceScanner/internal/ports"
)

var testNow = time.Date(2025, time.July, 4, 12, 0, 0, 0, time.UTC)

var cokeListings = []domain.RawListing{
	{ProductName: "Coca Cola 1.25L", Price: 3.50, Supplier: "A"},
	{ProductName: "Coca Cola 1.25L", Price: 3.80, Supplier: "B"},
	{ProductName: "Fanta 1.25L", Price: 3.60, Supplier: "C"},
}

type fakeSource struct {
	result domain.FetchResult
	err    error
	calls  int
}

func (f *fakeSource) Fetch(context.Context, string) (domain.FetchResult, error) {
	f.calls++
	return f.result, f.err
}

type panicAggregator struct{}

func (panicAggregator) Aggregate(context.Context, string, []domain.RawListing) (domain.Report, error) {
	panic("boom")
}

type brokenAggregator struct{}

func (brokenAggregator) Aggregate(context.Context, string, []domain.RawListing) (domain.Report, error) {
	return domain.Report{ProductName: "x", AveragePrice: 9, HighestPrice: 2, LowestPrice: 1,
		Suppliers: []domain.Supplier{{Name: "A", Price: 1}}}, nil
}

func newTestPipeline(src *fakeSource, c *cache.ResultCache, agg ports.Aggregator) *Pipeline {
	if agg == nil {
		agg = analysis.NewLocalAggregator(func() time.Time { return testNow })
	}
	return NewPipeline(PipelineDeps{
		Source:     src,
		Cache:      c,
		Aggregator: agg,
		Now:        func() time.Time { return testNow },
		NewID:      func() string { return "run-1" },
	})
}

func newTestCache() *cache.ResultCache {
	return cache.New(storage.NewMemoryStore(), time.Hour, nil, cache.WithClock(func() time.Time { return testNow }))
}

func TestPipelineFetchesAggregatesAndCaches(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: domain.FetchResult{Listings: cokeListings, Origin: domain.OriginLive}}
	c := newTestCache()
	p := newTestPipeline(src, c, nil)

	run := p.Execute(context.Background(), "  Coca Cola 1.25L ")
	if run.Err != nil {
		t.Fatalf("Execute failed: %v", run.Err)
	}

	wantHistory := []domain.QueryStatus{domain.StatusPending, domain.StatusFetching, domain.StatusAggregating, domain.StatusCompleted}
	if !reflect.DeepEqual(run.History, wantHistory) {
		t.Fatalf("unexpected history: %v", run.History)
	}
	if run.ID != "run-1" || run.Origin != domain.OriginLive || run.ProductName != "Coca Cola 1.25L" {
		t.Fatalf("unexpected run metadata: %+v", run)
	}
	if run.Report == nil || run.Report.AveragePrice != 3.65 || len(run.Report.Suppliers) != 2 {
		t.Fatalf("unexpected report: %+v", run.Report)
	}

	if cached, ok := c.Get(context.Background(), "coca cola 1.25l"); !ok || len(cached) != 3 {
		t.Fatalf("raw listings were not cached: ok=%v %+v", ok, cached)
	}
}

func TestPipelineCacheHitSkipsSource(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("must not be called")}
	c := newTestCache()
	c.Put(context.Background(), "coca cola 1.25l", cokeListings)

	run := newTestPipeline(src, c, nil).Execute(context.Background(), "COCA COLA 1.25L")
	if run.Err != nil {
		t.Fatalf("Execute failed: %v", run.Err)
	}
	if src.calls != 0 {
		t.Fatalf("source called %d times on cache hit", src.calls)
	}

	wantHistory := []domain.QueryStatus{domain.StatusPending, domain.StatusCacheHit, domain.StatusAggregating, domain.StatusCompleted}
	if !reflect.DeepEqual(run.History, wantHistory) || run.Origin != domain.OriginCache {
		t.Fatalf("unexpected run: %v origin=%s", run.History, run.Origin)
	}
}

func TestPipelineNoData(t *testing.T) {
	t.Parallel()

	src := &fakeSource{result: domain.FetchResult{Origin: domain.OriginLive, Degraded: domain.ErrTransport}}
	c := newTestCache()

	run := newTestPipeline(src, c, nil).Execute(context.Background(), "unobtainium")
	if run.Status != domain.StatusFailed || run.Failure != domain.FailureNoData {
		t.Fatalf("expected no_data failure, got %s/%s", run.Status, run.Failure)
	}
	if !errors.Is(run.Err, domain.ErrNoData) || run.Report != nil {
		t.Fatalf("unexpected run: %+v", run)
	}
	if _, ok := c.Get(context.Background(), "unobtainium"); ok {
		t.Fatalf("empty result must not be cached")
	}
}

func TestPipelineTransportErrorUsesDemoListings(t *testing.T) {
	t.Parallel()

	demo := []domain.RawListing{
		{ProductName: "A2 Milk Full Cream 2L", Price: 5.50, Supplier: "Woolworths Australia"},
		{ProductName: "A2 Milk Full Cream 2L", Price: 5.40, Supplier: "Coles Group Limited"},
	}
	src := &fakeSource{result: domain.FetchResult{Listings: demo, Origin: domain.OriginDemo, Degraded: domain.ErrTransport}}
	c := newTestCache()

	run := newTestPipeline(src, c, nil).Execute(context.Background(), "A2 Milk")
	if run.Err != nil {
		t.Fatalf("Execute failed: %v", run.Err)
	}
	if run.Origin != domain.OriginDemo || run.Report.LowestPrice != 5.40 {
		t.Fatalf("unexpected run: %+v", run)
	}
	if _, ok := c.Get(context.Background(), "a2 milk"); ok {
		t.Fatalf("demo listings must not be cached")
	}
}

func TestPipelineFailures(t *testing.T) {
	t.Parallel()

	live := domain.FetchResult{Listings: cokeListings, Origin: domain.OriginLive}

	cases := []struct {
		name  string
		query string
		src   *fakeSource
		agg   ports.Aggregator
		want  domain.FailureKind
	}{
		{name: "blank", query: "   ", src: &fakeSource{result: live}, want: domain.FailureInvalidQuery},
		{name: "configuration", query: "coke", src: &fakeSource{err: domain.ErrConfiguration}, want: domain.FailureConfiguration},
		{name: "no match", query: "Pepsi Max", src: &fakeSource{result: live}, want: domain.FailureNoMatch},
		{name: "panic", query: "Coca Cola", src: &fakeSource{result: live}, agg: panicAggregator{}, want: domain.FailureInternal},
		{name: "inconsistent report", query: "Coca Cola", src: &fakeSource{result: live}, agg: brokenAggregator{}, want: domain.FailureInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newTestPipeline(tc.src, newTestCache(), tc.agg)
			run := p.Execute(context.Background(), tc.query)
			if run.Status != domain.StatusFailed || run.Failure != tc.want {
				t.Fatalf("expected %s failure, got %s/%s (%v)", tc.want, run.Status, run.Failure, run.Err)
			}
			if run.ErrorMessage == "" || run.Report != nil {
				t.Fatalf("unexpected failed run: %+v", run)
			}

			if _, err := p.Run(context.Background(), tc.query); domain.Classify(err) != tc.want {
				t.Fatalf("Run classified as %s, want %s", domain.Classify(err), tc.want)
			}
		})
	}
}
