package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"PriceScanner/internal/analysis"
	"PriceScanner/internal/api"
	"PriceScanner/internal/cache"
	"PriceScanner/internal/config"
	"PriceScanner/internal/domain"
	"PriceScanner/internal/export"
	"PriceScanner/internal/infrastructure/llm"
	"PriceScanner/internal/infrastructure/parser"
	"PriceScanner/internal/infrastructure/storage"
	"PriceScanner/internal/logging"
	"PriceScanner/internal/ports"
	"PriceScanner/internal/scanner"
	"PriceScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	handler  http.Handler
	closers  []io.Closer
}

// New builds a runnable application instance from validated configuration.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := newRegistry(cfg, baseLogger)
	if err := checkScanners(registry, cfg.Source); err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, logger: baseLogger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	resultCache := cache.New(store, cfg.Cache.TTL, baseLogger.With("component", "cache"))

	source := parser.NewStrategySource(registry, cfg.Source, baseLogger.With("component", "source"))

	var remote ports.Aggregator
	if cfg.ChatGPT.APIKey != "" {
		remote = analysis.NewRemoteAggregator(llm.NewChatGPTClient(cfg.ChatGPT), cfg.ChatGPT.Timeout, nil)
	}
	aggregator := analysis.NewService(remote, analysis.NewLocalAggregator(nil), baseLogger.With("component", "analysis"))

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Cache:      resultCache,
		Aggregator: aggregator,
		Logger:     baseLogger.With("component", "pipeline"),
	})
	a.handler = api.NewRouter(api.NewHandler(a.pipeline, baseLogger.With("component", "http"), nil))

	baseLogger.Info("application ready",
		"scanner", cfg.Source.Scanner,
		"fallback", cfg.Source.Fallback,
		"cache_backend", cfg.Cache.Backend,
		"remote_aggregation", remote != nil,
	)
	return a, nil
}

func newRegistry(cfg config.Config, log *slog.Logger) *scanner.Registry {
	var renderer parser.Renderer
	if cfg.HTML.Renderer == "chrome" {
		renderer = parser.NewChromeRenderer(cfg.HTML.ChromeBin, cfg.HTML.UserAgent)
	} else {
		renderer = parser.NewHTTPRenderer(&http.Client{Timeout: cfg.Source.Timeout}, cfg.HTML.UserAgent)
	}

	httpClient := &http.Client{Timeout: cfg.Source.Timeout}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewSearchAPIScanner(httpClient, cfg.SearchAPI, cfg.Source, log.With("component", "scanner.searchapi")))
	registry.Register(parser.NewCustomSearchScanner(httpClient, cfg.CustomSearch, cfg.Source, log.With("component", "scanner.customsearch")))
	registry.Register(parser.NewHTMLScanner(renderer, cfg.HTML.Retailers, cfg.Source.MaxResults, log.With("component", "scanner.html")))
	registry.Register(parser.NewDemoScanner())
	return registry
}

// checkScanners rejects primary or fallback names the registry does not know.
func checkScanners(registry *scanner.Registry, cfg config.SourceConfig) error {
	names := registry.Names()
	if !slices.Contains(names, cfg.Scanner) {
		return fmt.Errorf("%w: unknown source scanner %q (known: %s)", domain.ErrConfiguration, cfg.Scanner, strings.Join(names, ", "))
	}
	if cfg.Fallback != "" && !slices.Contains(names, cfg.Fallback) {
		return fmt.Errorf("%w: unknown fallback scanner %q (known: %s)", domain.ErrConfiguration, cfg.Fallback, strings.Join(names, ", "))
	}
	return nil
}

func (a *Application) openStore(ctx context.Context) (ports.CacheStore, error) {
	cfg := a.cfg.Cache
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(cfg.Dir)
	case "sql":
		store, err := storage.OpenSQLStore(ctx, cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		return store, nil
	case "redis":
		client, err := storage.ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		store := storage.NewRedisStore(client, cfg.Redis.Prefix, cfg.TTL)
		a.closers = append(a.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", domain.ErrConfiguration, cfg.Backend)
	}
}

// Handler exposes the HTTP surface, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		a.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Query runs a single product query and writes the export to w.
func (a *Application) Query(ctx context.Context, productName string, format export.Format, w io.Writer) error {
	report, err := a.pipeline.Run(ctx, productName)
	if err != nil {
		return err
	}
	return export.Write(w, format, report)
}

// Close releases store connections.
func (a *Application) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
