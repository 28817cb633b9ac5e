package httptransport

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tuition/internal/platform/health"
	"tuition/pkg/platform/middleware/request"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

type echoAPI struct{}

func (echoAPI) Register(r chi.Router) {
	r.Post("/api/echo", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(echoAPI{}, RouterConfig{
		Health:       health.New("identity", "test"),
		Gatherer:     reg,
		Latency:      request.NewMetrics(reg, "identity"),
		MaxBodyBytes: 1024,
	}, slog.New(slog.DiscardHandler))
}

func TestNewRouter(t *testing.T) {
	router := newTestRouter()

	t.Run("domain routes are mounted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("non-JSON content type is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/echo", strings.NewReader(`a=b`))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("unknown path is a JSON 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"not_found","error_description":"no handler for /echo"}`, rec.Body.String())
	})

	t.Run("probes and metrics", func(t *testing.T) {
		for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code, path)
		}
	})
}
