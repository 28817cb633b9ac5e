// Package proxy relays a matched request to its backend and returns the
// backend's answer untouched.
//
// A forward is bounded by a per-attempt timeout. Transport failures surface
// as upstream_unavailable or upstream_timeout. Reads (GET, HEAD) get exactly
// one extra attempt after a transport failure; writes are never retried
// because the backend may already have committed them. An HTTP response of
// any status is an answer, not a failure, and is never retried.
//
// A caller that gives up mid-forward is not held against the backend: the
// breaker and the failure metrics only see what the backend did.
package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tuition/internal/gateway/metrics"
	"tuition/internal/gateway/routing"
	"tuition/pkg/platform/circuit"
	dErrors "tuition/pkg/domain-errors"
	"tuition/pkg/requestcontext"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout          = 5 * time.Second
	defaultMaxResponseBytes = 10 << 20
)

// errResponseTooLarge marks an answer that cannot be relayed whole.
var errResponseTooLarge = errors.New("backend answer exceeds the relay limit")

// HTTPDoer is the subset of *http.Client used to reach backends.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a fully buffered backend answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Attempts is 2 when a read was retried after a transport failure.
	Attempts int
}

// WriteTo copies the backend answer to w without modification.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for k, vv := range r.Header {
		dst[k] = append([]string(nil), vv...)
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}

// Forwarder sends requests to backends on behalf of the gateway.
type Forwarder struct {
	client     HTTPDoer
	timeout    time.Duration
	retryReads bool
	maxBody    int64
	breakers   map[string]*circuit.Breaker
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	logger     *slog.Logger
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithClient overrides the HTTP client used for backend calls.
func WithClient(c HTTPDoer) Option {
	return func(f *Forwarder) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout bounds each attempt. Default is 5s.
func WithTimeout(d time.Duration) Option {
	return func(f *Forwarder) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRetryReads toggles the single retry for GET and HEAD. Default is on.
func WithRetryReads(enabled bool) Option {
	return func(f *Forwarder) {
		f.retryReads = enabled
	}
}

// WithBreakers installs one circuit breaker per route name.
func WithBreakers(routes []routing.Route, opts ...circuit.Option) Option {
	return func(f *Forwarder) {
		f.breakers = make(map[string]*circuit.Breaker, len(routes))
		for _, rt := range routes {
			f.breakers[rt.Name] = circuit.New(rt.Name, opts...)
		}
	}
}

// WithMetrics records forwarding metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Forwarder) {
		f.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(f *Forwarder) {
		if t != nil {
			f.tracer = t
		}
	}
}

// WithMaxResponseBytes caps the size of a relayed answer. Larger answers
// fail with upstream_unavailable instead of being cut short.
func WithMaxResponseBytes(n int64) Option {
	return func(f *Forwarder) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// New creates a Forwarder.
func New(logger *slog.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{
		timeout:    defaultTimeout,
		retryReads: true,
		maxBody:    defaultMaxResponseBytes,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{
			// Redirects are answers for the caller, not for the gateway.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if f.tracer == nil {
		f.tracer = otel.Tracer("tuition/gateway")
	}
	if f.propagator == nil {
		f.propagator = otel.GetTextMapPropagator()
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f
}

// Forward relays in to the route's backend. body is the already-read
// request body; it is replayed unchanged on every attempt.
func (f *Forwarder) Forward(ctx context.Context, rt routing.Route, in *http.Request, body []byte) (*Response, error) {
	start := time.Now()
	ctx, span := f.tracer.Start(ctx, "gateway.forward",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gateway.route", rt.Name),
			attribute.String("http.request.method", in.Method),
			attribute.String("url.path", in.URL.Path),
		))
	defer span.End()

	template, err := f.outbound(rt, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build upstream request")
	}

	maxAttempts := 1
	if f.retryReads && isRead(in.Method) {
		maxAttempts = 2
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			f.countRetry(rt)
			f.logger.WarnContext(ctx, "retrying read after upstream failure",
				"route", rt.Name,
				"method", in.Method,
				"path", in.URL.Path,
				"error", lastErr,
			)
		}
		if !f.allow(rt) {
			lastErr = dErrors.New(dErrors.CodeUpstreamUnavailable,
				fmt.Sprintf("%s backend is unavailable", rt.Name))
			f.countFailure(rt, "circuit_open")
			break
		}

		resp, err := f.attempt(ctx, rt, template, body)
		if err == nil {
			f.recordSuccess(ctx, rt)
			resp.Attempts = attempt
			f.observe(rt, in.Method, resp.StatusCode, start)
			span.SetAttributes(
				attribute.Int("http.response.status_code", resp.StatusCode),
				attribute.Int("gateway.attempts", attempt),
			)
			f.logger.InfoContext(ctx, "request forwarded",
				"route", rt.Name,
				"backend", rt.Backend,
				"method", in.Method,
				"path", in.URL.Path,
				"forward_path", template.URL.Path,
				"status", resp.StatusCode,
				"attempts", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return resp, nil
		}

		lastErr = err
		if dErrors.HasCode(err, dErrors.CodeCanceled) {
			break
		}
		if errors.Is(err, errResponseTooLarge) {
			// Asking again yields the same answer.
			f.countFailure(rt, "too_large")
			break
		}
		f.recordFailure(ctx, rt, err)
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	if f.metrics != nil {
		f.metrics.ForwardDuration.WithLabelValues(rt.Name).Observe(time.Since(start).Seconds())
	}
	level := slog.LevelWarn
	if dErrors.HasCode(lastErr, dErrors.CodeCanceled) {
		level = slog.LevelInfo
	}
	f.logger.Log(ctx, level, "forward failed",
		"route", rt.Name,
		"backend", rt.Backend,
		"method", in.Method,
		"path", in.URL.Path,
		"error", lastErr,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil, lastErr
}

// outbound builds the request template shared by all attempts.
func (f *Forwarder) outbound(rt routing.Route, in *http.Request) (*http.Request, error) {
	u := rt.BackendURL()
	escaped := rt.ForwardPath(in.URL.EscapedPath())
	path, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(u.Path, "/")
	u.Path = base + path
	u.RawPath = base + escaped
	u.RawQuery = in.URL.RawQuery

	out, err := http.NewRequest(in.Method, u.String(), nil)
	if err != nil {
		return nil, err
	}
	out.Header = endToEnd(in.Header)
	out.Header.Del("Content-Length")
	setForwardedHeaders(out.Header, in)
	return out, nil
}

func (f *Forwarder) attempt(ctx context.Context, rt routing.Route, template *http.Request, body []byte) (*Response, error) {
	actx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req := template.Clone(actx)
	if len(body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set(requestcontext.HeaderRequestID, id)
	}
	f.propagator.Inject(actx, propagation.HeaderCarrier(req.Header))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, actx, rt, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, f.classify(ctx, actx, rt, err)
	}
	if int64(len(data)) > f.maxBody {
		return nil, dErrors.Wrap(fmt.Errorf("%w (%d bytes)", errResponseTooLarge, f.maxBody),
			dErrors.CodeUpstreamUnavailable,
			fmt.Sprintf("%s backend answer is too large to relay", rt.Name))
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     endToEnd(resp.Header),
		Body:       data,
	}, nil
}

// classify maps a transport error to a timeout or an unavailable backend,
// unless the caller's own context ended first.
func (f *Forwarder) classify(parent, attemptCtx context.Context, rt routing.Route, err error) error {
	if parent.Err() != nil {
		return dErrors.Wrap(err, dErrors.CodeCanceled,
			fmt.Sprintf("caller abandoned the %s request", rt.Name))
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeUpstreamTimeout,
			fmt.Sprintf("%s backend did not respond within %s", rt.Name, f.timeout))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return dErrors.Wrap(err, dErrors.CodeUpstreamTimeout,
			fmt.Sprintf("%s backend did not respond within %s", rt.Name, f.timeout))
	}
	return dErrors.Wrap(err, dErrors.CodeUpstreamUnavailable,
		fmt.Sprintf("%s backend is unavailable", rt.Name))
}

// RouteCheck returns a readiness check for a route that fails while the
// route's breaker is open.
func (f *Forwarder) RouteCheck(name string) func(context.Context) error {
	return func(context.Context) error {
		if b, ok := f.breakers[name]; ok && b.State() == circuit.StateOpen {
			return fmt.Errorf("%s circuit open", name)
		}
		return nil
	}
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func (f *Forwarder) allow(rt routing.Route) bool {
	b, ok := f.breakers[rt.Name]
	return !ok || b.Allow()
}

func (f *Forwarder) recordSuccess(ctx context.Context, rt routing.Route) {
	b, ok := f.breakers[rt.Name]
	if !ok {
		return
	}
	if b.RecordSuccess().Closed {
		f.logger.InfoContext(ctx, "circuit closed", "route", rt.Name)
		if f.metrics != nil {
			f.metrics.BreakerOpen.WithLabelValues(rt.Name).Set(0)
		}
	}
}

func (f *Forwarder) recordFailure(ctx context.Context, rt routing.Route, err error) {
	reason := "unavailable"
	if dErrors.HasCode(err, dErrors.CodeUpstreamTimeout) {
		reason = "timeout"
	}
	f.countFailure(rt, reason)

	b, ok := f.breakers[rt.Name]
	if !ok {
		return
	}
	if b.RecordFailure().Opened {
		f.logger.WarnContext(ctx, "circuit opened", "route", rt.Name, "error", err)
		if f.metrics != nil {
			f.metrics.BreakerOpen.WithLabelValues(rt.Name).Set(1)
		}
	}
}

func (f *Forwarder) countFailure(rt routing.Route, reason string) {
	if f.metrics != nil {
		f.metrics.UpstreamFailures.WithLabelValues(rt.Name, reason).Inc()
	}
}

func (f *Forwarder) countRetry(rt routing.Route) {
	if f.metrics != nil {
		f.metrics.Retries.WithLabelValues(rt.Name).Inc()
	}
}

func (f *Forwarder) observe(rt routing.Route, method string, status int, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.ForwardedRequests.WithLabelValues(rt.Name, method, fmt.Sprint(status)).Inc()
	f.metrics.ForwardDuration.WithLabelValues(rt.Name).Observe(time.Since(start).Seconds())
}
