package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"PriceScanner/internal/app"
	"PriceScanner/internal/config"
	"PriceScanner/internal/export"
	"PriceScanner/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit code so deferred cleanup always happens.
// In -query mode stdout carries only the export; logs go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("pricescanner", flag.ContinueOnError)
	flags.SetOutput(stderr)
	query := flags.String("query", "", "run a single product query and print the export instead of serving HTTP")
	format := flags.String("format", "json", "export format for -query: json or csv")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	logOut := stdout
	if *query != "" {
		logOut = stderr
	}
	logger := logging.NewWithWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	if *query != "" {
		f, err := export.ParseFormat(*format)
		if err != nil {
			logger.Error("invalid format", "error", err)
			return 2
		}
		if err := application.Query(ctx, *query, f, stdout); err != nil {
			logger.Error("query failed", "query", *query, "error", err)
			return 1
		}
		return 0
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		return 1
	}
	return 0
}
