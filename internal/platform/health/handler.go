// Package health serves the liveness, readiness and status probes of every
// process.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"tuition/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Version is set at build time via ldflags.
var Version = "dev"

const defaultCheckTimeout = 2 * time.Second

// CheckFunc reports whether a dependency such as the store's database is
// usable. nil means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	advisory bool
}

// Handler serves the probes of one process.
type Handler struct {
	startTime    time.Time
	service      string
	environment  string
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks []check
}

// New creates a health handler for service.
func New(service, environment string) *Handler {
	return &Handler{
		startTime:    time.Now(),
		service:      service,
		environment:  environment,
		checkTimeout: defaultCheckTimeout,
	}
}

// RegisterCheck adds a check the process cannot serve without. A failure
// makes readiness answer 503.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.add(check{name: name, fn: fn})
}

// RegisterAdvisory adds a check whose failure degrades the process without
// taking it out of rotation, such as one backend of the gateway.
func (h *Handler) RegisterAdvisory(name string, fn CheckFunc) {
	h.add(check{name: name, fn: fn, advisory: true})
}

func (h *Handler) add(c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.checks {
		if h.checks[i].name == c.name {
			h.checks[i] = c
			return
		}
	}
	h.checks = append(h.checks, c)
}

// Register mounts the probe routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness answers 200 whenever the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently, each bounded by the check
// timeout. Status is "ready", "degraded" when only advisory checks fail,
// or "not_ready" with 503.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]check(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]error, len(checks))
	g, ctx := errgroup.WithContext(r.Context())
	for i, c := range checks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
			defer cancel()
			results[i] = c.fn(cctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]string, len(checks))}
	critical := false
	for i, c := range checks {
		if err := results[i]; err != nil {
			resp.Checks[c.name] = "down: " + err.Error()
			if c.advisory {
				if resp.Status == "ready" {
					resp.Status = "degraded"
				}
				continue
			}
			critical = true
			continue
		}
		resp.Checks[c.name] = "up"
	}

	if critical {
		resp.Status = "not_ready"
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type StatusResponse struct {
	Status        string   `json:"status"`
	Service       string   `json:"service"`
	Version       string   `json:"version"`
	Environment   string   `json:"environment"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Timestamp     string   `json:"timestamp"`
	Checks        []string `json:"checks,omitempty"`
}

// HandleStatus reports identity, version and uptime. It runs no checks.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for _, c := range h.checks {
		names = append(names, c.name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Service:       h.service,
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Checks:        names,
	})
}
