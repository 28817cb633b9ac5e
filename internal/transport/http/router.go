// Package httptransport assembles the HTTP surface of a record-keeping store.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"tuition/internal/platform/health"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"
	"tuition/pkg/platform/middleware/request"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registrar mounts a store's domain routes.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the ambient endpoints and limits of a store.
type RouterConfig struct {
	Health         *health.Handler
	Gatherer       prometheus.Gatherer
	Latency        *request.Metrics
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// NewRouter wires a store's endpoints with the shared middleware stack.
// Probes and metrics stay outside the body limit and JSON checks.
func NewRouter(api Registrar, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Latency))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no handler for "+r.URL.Path))
	})

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.MaxBodyBytes > 0 {
			r.Use(request.BodyLimit(cfg.MaxBodyBytes))
		}
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.ContentTypeJSON)
		api.Register(r)
	})

	return r
}
