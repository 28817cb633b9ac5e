package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tuition/internal/gateway/handler"
	"tuition/internal/gateway/metrics"
	"tuition/internal/gateway/proxy"
	"tuition/internal/gateway/routing"
	"tuition/internal/platform/config"
	"tuition/internal/platform/health"
	"tuition/internal/platform/httpserver"
	"tuition/internal/platform/logger"
	"tuition/internal/platform/tracing"
	"tuition/pkg/platform/circuit"
	"tuition/pkg/platform/middleware/request"
	"tuition/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// main wires the router: route table from config, forwarder, probes and
// metrics. It holds no domain state.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadGateway()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("gateway", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "gateway", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	table, err := routing.NewTable(cfg.Routes()...)
	if err != nil {
		return fmt.Errorf("build route table: %w", err)
	}
	for _, rt := range table.Routes() {
		log.Info("route registered",
			"route", rt.Name,
			"prefix", rt.Prefix,
			"backend", rt.Backend,
			"strip_prefix", rt.StripPrefix,
		)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	forwarder := proxy.New(log,
		proxy.WithTimeout(cfg.UpstreamTimeout),
		proxy.WithRetryReads(cfg.RetryReads),
		proxy.WithMetrics(m),
		proxy.WithBreakers(table.Routes(),
			circuit.WithFailureThreshold(cfg.BreakerFailures),
			circuit.WithCooldown(cfg.BreakerCooldown),
		),
	)

	probes := health.New("gateway", cfg.Environment)
	for _, rt := range table.Routes() {
		probes.RegisterAdvisory("route:"+rt.Name, forwarder.RouteCheck(rt.Name))
	}

	router := handler.NewRouter(
		handler.New(table, forwarder, m, log),
		handler.RouterConfig{
			Health:       probes,
			Gatherer:     reg,
			Latency:      request.NewMetrics(reg, "gateway"),
			MaxBodyBytes: validation.MaxBodySize,
		},
		log,
	)

	log.Info("initializing gateway",
		"addr", cfg.Addr,
		"upstream_timeout", cfg.UpstreamTimeout,
		"retry_reads", cfg.RetryReads,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), log)
}
