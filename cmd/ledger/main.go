package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tuition/internal/ledger/handler"
	"tuition/internal/ledger/metrics"
	"tuition/internal/ledger/service"
	"tuition/internal/ledger/store/payment"
	"tuition/internal/platform/config"
	"tuition/internal/platform/database"
	"tuition/internal/platform/health"
	"tuition/internal/platform/httpserver"
	"tuition/internal/platform/logger"
	"tuition/internal/platform/tracing"
	httptransport "tuition/internal/transport/http"
	"tuition/migrations"
	"tuition/pkg/platform/middleware/request"
	"tuition/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type paymentStore interface {
	service.PaymentStore
	Ping(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ledger:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadLedger()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("ledger", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "ledger", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store, pool, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // process is exiting
	if db := pool.DB(); db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, "ledger"))
	}

	// No user lookup is wired in: the ledger records whatever userId it is given.
	svc := service.New(store,
		service.WithMetrics(metrics.New(reg)),
		service.WithLogger(log),
	)

	probes := health.New("ledger", cfg.Environment)
	probes.RegisterCheck("store", store.Ping)

	router := httptransport.NewRouter(
		handler.New(svc, cfg.BasePath, log),
		httptransport.RouterConfig{
			Health:         probes,
			Gatherer:       reg,
			Latency:        request.NewMetrics(reg, "ledger"),
			MaxBodyBytes:   validation.MaxBodySize,
			RequestTimeout: cfg.RequestTimeout,
		},
		log,
	)

	log.Info("initializing ledger",
		"addr", cfg.Addr,
		"base_path", cfg.BasePath,
		"driver", cfg.Driver,
	)
	return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), log)
}

func openStore(ctx context.Context, cfg config.Store, log *slog.Logger) (paymentStore, *database.Pool, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		pool, err := database.OpenSQLite(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Migrate(ctx, migrations.LedgerSQLite); err != nil {
			pool.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, nil, err
		}
		log.Info("sqlite store ready", "dsn", cfg.DSN)
		return payment.NewSQLite(pool.DB()), pool, nil

	case config.DriverPostgres:
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DSN
		pool, err := database.OpenPostgres(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("LEDGER_DB_DSN: %w", err)
		}
		if err := pool.Migrate(ctx, migrations.LedgerPostgres); err != nil {
			pool.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, nil, err
		}
		log.Info("postgres store ready")
		return payment.NewPostgres(pool.DB()), pool, nil

	default:
		log.Warn("using in-memory store, records are lost on restart")
		return payment.NewInMemory(), nil, nil
	}
}
