package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tuition/internal/gateway/handler/mocks"
	"tuition/internal/gateway/metrics"
	"tuition/internal/gateway/proxy"
	"tuition/internal/gateway/routing"
	"tuition/internal/platform/health"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"
	"tuition/pkg/platform/middleware/request"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type GatewayHandlerSuite struct {
	suite.Suite
	table *routing.Table
}

func (s *GatewayHandlerSuite) SetupSuite() {
	table, err := routing.NewTable(
		routing.Route{Name: "identity", Prefix: "/api/auth", Backend: "http://identity:3001"},
		routing.Route{Name: "ledger", Prefix: "/api/payments", Backend: "http://ledger:3002"},
	)
	s.Require().NoError(err)
	s.table = table
}

func TestGatewayHandlerSuite(t *testing.T) {
	suite.Run(t, new(GatewayHandlerSuite))
}

func (s *GatewayHandlerSuite) newRouter(t *testing.T) (*mocks.MockForwarder, *metrics.Metrics, http.Handler) {
	ctrl := gomock.NewController(t)
	forwarder := mocks.NewMockForwarder(ctrl)
	m := metrics.New(prometheus.NewRegistry())
	logger := slog.New(slog.DiscardHandler)
	gw := New(s.table, forwarder, m, logger)
	return forwarder, m, NewRouter(gw, RouterConfig{MaxBodyBytes: 64}, logger)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *GatewayHandlerSuite) TestUnmatchedPath() {
	for _, path := range []string{"/", "/api/admin/stats", "/auth/register"} {
		s.T().Run(path, func(t *testing.T) {
			// No EXPECT: any forward attempt fails the test.
			_, m, router := s.newRouter(t)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusNotFound, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "no_route", body.Error)
			assert.Contains(t, body.ErrorDescription, path)
			assert.Equal(t, 1.0, promtest.ToFloat64(m.UnmatchedRequests))
		})
	}
}

func (s *GatewayHandlerSuite) TestForwardsToOwningBackend() {
	cases := []struct {
		method string
		path   string
		body   string
		route  string
	}{
		{http.MethodPost, "/api/auth/register", `{"name":"Ana"}`, "identity"},
		{http.MethodGet, "/api/auth/users", "", "identity"},
		{http.MethodPost, "/api/payments/payment", `{"userId":1,"amount":500}`, "ledger"},
		{http.MethodDelete, "/api/payments/payments/3", "", "ledger"},
	}
	for _, tc := range cases {
		s.T().Run(tc.method+" "+tc.path, func(t *testing.T) {
			forwarder, _, router := s.newRouter(t)
			forwarder.EXPECT().
				Forward(gomock.Any(), gomock.Any(), gomock.Any(), []byte(tc.body)).
				DoAndReturn(func(_ any, rt routing.Route, in *http.Request, _ []byte) (*proxy.Response, error) {
					assert.Equal(t, tc.route, rt.Name)
					assert.Equal(t, tc.path, in.URL.Path)
					return &proxy.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte("ok")}, nil
				})

			var reqBody io.Reader
			if tc.body != "" {
				reqBody = strings.NewReader(tc.body)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, reqBody))

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func (s *GatewayHandlerSuite) TestBackendAnswerIsRelayedVerbatim() {
	forwarder, _, router := s.newRouter(s.T())
	backendBody := `{"error":"validation_error","error_description":"email: must be a valid email address"}`
	forwarder.EXPECT().Forward(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&proxy.Response{
		StatusCode: http.StatusBadRequest,
		Header:     http.Header{"Content-Type": {"application/json"}, "X-Store": {"identity"}},
		Body:       []byte(backendBody),
	}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{}`)))

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("identity", rec.Header().Get("X-Store"))
	s.Equal(backendBody, rec.Body.String())
	s.NotEmpty(rec.Header().Get("X-Request-ID"))
}

func (s *GatewayHandlerSuite) TestUpstreamFailures() {
	cases := []struct {
		code   dErrors.Code
		status int
		wire   string
	}{
		{dErrors.CodeUpstreamUnavailable, http.StatusBadGateway, "upstream_unavailable"},
		{dErrors.CodeUpstreamTimeout, http.StatusGatewayTimeout, "upstream_timeout"},
	}
	for _, tc := range cases {
		s.T().Run(tc.wire, func(t *testing.T) {
			forwarder, _, router := s.newRouter(t)
			forwarder.EXPECT().Forward(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, dErrors.New(tc.code, "ledger backend is unavailable"))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments/payments", nil))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.wire, decodeError(t, rec).Error)
		})
	}
}

func (s *GatewayHandlerSuite) TestOversizedBodyIsRejectedBeforeForwarding() {
	_, _, router := s.newRouter(s.T())
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"`+strings.Repeat("a", 200)+`"}`)))

	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)
	s.Equal("request_too_large", decodeError(s.T(), rec).Error)
}

func TestRouterServesProbesLocally(t *testing.T) {
	table, err := routing.NewTable(routing.Route{Name: "identity", Prefix: "/", Backend: "http://identity:3001"})
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	forwarder := mocks.NewMockForwarder(ctrl)

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.DiscardHandler)
	router := NewRouter(New(table, forwarder, metrics.New(reg), logger), RouterConfig{
		Health:   health.New("gateway", "test"),
		Gatherer: reg,
		Latency:  request.NewMetrics(reg, "gateway"),
	}, logger)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
