// Package api exposes the query pipeline over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"PriceScanner/internal/domain"
)

// QueryRunner executes one product query end to end.
type QueryRunner interface {
	Execute(ctx context.Context, productName string) domain.QueryRun
}

// Handler serves the query and download endpoints.
type Handler struct {
	runner QueryRunner
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler wires the pipeline; nil now means time.Now.
func NewHandler(runner QueryRunner, log *slog.Logger, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{runner: runner, logger: log, now: now}
}

// NewRouter mounts health, query and download routes behind the common middleware.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(handler.recoverMiddleware)
	r.Use(handler.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })

	r.Route("/api", func(r chi.Router) {
		r.Post("/query", handler.query)
		r.Post("/download", handler.download)
	})
	return r
}
