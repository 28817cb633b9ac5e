package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"tuition/internal/client"
	gwhandler "tuition/internal/gateway/handler"
	"tuition/internal/gateway/metrics"
	"tuition/internal/gateway/proxy"
	"tuition/internal/gateway/routing"
	idhandler "tuition/internal/identity/handler"
	idservice "tuition/internal/identity/service"
	"tuition/internal/identity/store/user"
	ledgerhandler "tuition/internal/ledger/handler"
	ledgerservice "tuition/internal/ledger/service"
	"tuition/internal/ledger/store/payment"
	"tuition/internal/reconcile"
	httptransport "tuition/internal/transport/http"
	"tuition/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

// TestContext holds one running portal and what the steps saw of it.
type TestContext struct {
	Gateway  *httptest.Server
	Identity *httptest.Server
	Ledger   *httptest.Server
	Client   *client.Client

	IdentityHits *atomic.Int64
	LedgerHits   *atomic.Int64

	Users       map[string]*client.User
	LastUser    *client.User
	LastPayment *client.Payment
	LastErr     error
	Report      *reconcile.Report

	LastResponse     *http.Response
	LastResponseBody []byte
}

func counting(n *atomic.Int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		next.ServeHTTP(w, r)
	})
}

// NewTestContext starts both stores on memory backends and a gateway in
// front of them, each on its own loopback listener.
func NewTestContext() (*TestContext, error) {
	logger := slog.New(slog.DiscardHandler)
	tc := &TestContext{
		IdentityHits: new(atomic.Int64),
		LedgerHits:   new(atomic.Int64),
		Users:        make(map[string]*client.User),
	}
	storeCfg := httptransport.RouterConfig{MaxBodyBytes: validation.MaxBodySize}

	users := idservice.New(user.NewInMemory(), idservice.WithBcryptCost(bcrypt.MinCost))
	tc.Identity = httptest.NewServer(counting(tc.IdentityHits,
		httptransport.NewRouter(idhandler.New(users, "/api/auth", logger), storeCfg, logger)))

	payments := ledgerservice.New(payment.NewInMemory())
	tc.Ledger = httptest.NewServer(counting(tc.LedgerHits,
		httptransport.NewRouter(ledgerhandler.New(payments, "/api/payments", logger), storeCfg, logger)))

	table, err := routing.NewTable(
		routing.Route{Name: "identity", Prefix: "/api/auth", Backend: tc.Identity.URL},
		routing.Route{Name: "ledger", Prefix: "/api/payments", Backend: tc.Ledger.URL},
	)
	if err != nil {
		tc.Close()
		return nil, fmt.Errorf("routing table: %w", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	forwarder := proxy.New(logger,
		proxy.WithTimeout(2*time.Second),
		proxy.WithMetrics(m),
		proxy.WithBreakers(table.Routes()),
	)
	gw := gwhandler.New(table, forwarder, m, logger)
	tc.Gateway = httptest.NewServer(gwhandler.NewRouter(gw,
		gwhandler.RouterConfig{MaxBodyBytes: validation.MaxBodySize}, logger))

	tc.Client, err = client.New(tc.Gateway.URL)
	if err != nil {
		tc.Close()
		return nil, err
	}
	return tc, nil
}

// Close stops every server that was started.
func (tc *TestContext) Close() {
	for _, srv := range []*httptest.Server{tc.Gateway, tc.Identity, tc.Ledger} {
		if srv != nil {
			srv.Close()
		}
	}
}

// GET sends a raw request through the gateway and keeps the answer.
func (tc *TestContext) GET(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tc.Gateway.URL+path, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	return err
}
