// Package client talks to the portal through the router. It never
// addresses a store directly.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/platform/httputil"
	"tuition/pkg/requestcontext"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	DefaultIdentityPath = "/api/auth"
	DefaultLedgerPath   = "/api/payments"
)

// HTTPDoer is the subset of *http.Client the Client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// User is a registered user as listed by the identity store.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Payment is a recorded payment as listed by the ledger.
type Payment struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"userId"`
	Amount float64 `json:"amount"`
}

// Client calls the router.
type Client struct {
	base         *url.URL
	http         HTTPDoer
	identityPath string
	ledgerPath   string
}

type Option func(*Client)

// WithHTTPClient overrides the HTTP client. The default has a 15s timeout.
func WithHTTPClient(c HTTPDoer) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithPaths overrides the identity and ledger path prefixes.
func WithPaths(identity, ledger string) Option {
	return func(cl *Client) {
		if identity != "" {
			cl.identityPath = identity
		}
		if ledger != "" {
			cl.ledgerPath = ledger
		}
	}
}

// New creates a Client for the router at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse router url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("router url %q must be an absolute http(s) URL", baseURL)
	}
	c := &Client{
		base:         u,
		http:         &http.Client{Timeout: 15 * time.Second},
		identityPath: DefaultIdentityPath,
		ledgerPath:   DefaultLedgerPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Register creates a user.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	body := map[string]string{"name": name, "email": email, "password": password}
	var out User
	if err := c.do(ctx, http.MethodPost, c.identityPath+"/register", nil, body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns every registered user.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out []User
	if err := c.do(ctx, http.MethodGet, c.identityPath+"/users", nil, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePayment records a payment. userID is not checked against the
// identity store by anyone.
func (c *Client) CreatePayment(ctx context.Context, userID int64, amount float64) (*Payment, error) {
	body := map[string]any{"userId": userID, "amount": amount}
	var out Payment
	if err := c.do(ctx, http.MethodPost, c.ledgerPath+"/payment", nil, body, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPayments returns payments, all of them when userID is nil.
func (c *Client) ListPayments(ctx context.Context, userID *int64) ([]Payment, error) {
	var query url.Values
	if userID != nil {
		query = url.Values{"userId": {strconv.FormatInt(*userID, 10)}}
	}
	var out []Payment
	if err := c.do(ctx, http.MethodGet, c.ledgerPath+"/payments", query, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any, want int, out any) error {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set(requestcontext.HeaderRequestID, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return &InfrastructureError{
			Code:    dErrors.CodeUpstreamUnavailable,
			Message: "router is unreachable",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &InfrastructureError{
			Code:       dErrors.CodeUpstreamUnavailable,
			StatusCode: resp.StatusCode,
			Message:    "failed to read response",
			Err:        err,
		}
	}
	if resp.StatusCode != want {
		return classify(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify turns a non-success answer into a DomainError or an
// InfrastructureError.
func classify(status int, raw []byte) error {
	var envelope httputil.ErrorResponse
	code := dErrors.CodeInternal
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		code = httputil.CodeFromHTTPCode(envelope.Error)
	} else if status < http.StatusInternalServerError {
		code = dErrors.CodeBadRequest
		if status == http.StatusNotFound {
			code = dErrors.CodeNotFound
		}
	}

	if code.IsInfrastructure() || status >= http.StatusInternalServerError {
		return &InfrastructureError{Code: code, StatusCode: status, Message: envelope.ErrorDescription}
	}
	return &DomainError{Code: code, StatusCode: status, Message: envelope.ErrorDescription}
}
