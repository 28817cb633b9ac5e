package handler

import (
	"log/slog"
	"net/http"

	"tuition/internal/platform/health"
	"tuition/pkg/platform/middleware/request"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries what NewRouter needs besides the gateway itself.
type RouterConfig struct {
	Health       *health.Handler
	Gatherer     prometheus.Gatherer
	Latency      *request.Metrics
	MaxBodyBytes int64
}

// NewRouter serves probes and metrics locally and hands every other path
// to the gateway, whatever its method.
//
// No content-type or timeout middleware here: the backend decides what a
// body means, and the forwarder owns the upstream deadline.
func NewRouter(gateway http.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Latency))

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
		r.Handle("/*", gateway)
	})

	return r
}
