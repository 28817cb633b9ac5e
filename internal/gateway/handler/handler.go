// Package handler exposes the router's single catch-all entry point.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"tuition/internal/gateway/metrics"
	"tuition/internal/gateway/proxy"
	"tuition/internal/gateway/routing"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"
	"tuition/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/forwarder-mocks.go -package=mocks Forwarder

// Forwarder relays a matched request to its backend.
type Forwarder interface {
	Forward(ctx context.Context, rt routing.Route, in *http.Request, body []byte) (*proxy.Response, error)
}

// Handler matches each request against the route table and relays it.
// It never inspects or rewrites the body or status of a backend answer.
type Handler struct {
	table     *routing.Table
	forwarder Forwarder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a gateway Handler. m may be nil.
func New(table *routing.Table, forwarder Forwarder, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		table:     table,
		forwarder: forwarder,
		metrics:   m,
		logger:    logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	rt, ok := h.table.Match(r.URL.Path)
	if !ok {
		if h.metrics != nil {
			h.metrics.UnmatchedRequests.Inc()
		}
		h.logger.InfoContext(ctx, "no route matched",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeNoRoute, fmt.Sprintf("no route for %s", r.URL.Path)))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to read request body",
			"route", rt.Name,
			"error", err,
			"request_id", requestID,
		)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeTooLarge, "request body too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}

	resp, err := h.forwarder.Forward(ctx, rt, r, body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := resp.WriteTo(w); err != nil {
		h.logger.WarnContext(ctx, "failed to write response",
			"route", rt.Name,
			"error", err,
			"request_id", requestID,
		)
	}
}
