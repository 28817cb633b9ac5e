package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"tuition/internal/gateway/routing"
)

// Common holds settings shared by every process.
type Common struct {
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	Environment  string `envconfig:"ENV" default:"dev"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Gateway configures the router. The route table is fixed at startup.
type Gateway struct {
	Common

	Addr            string        `envconfig:"GATEWAY_ADDR" default:":3000"`
	UpstreamTimeout time.Duration `envconfig:"GATEWAY_UPSTREAM_TIMEOUT" default:"5s"`
	RetryReads      bool          `envconfig:"GATEWAY_RETRY_READS" default:"true"`
	BreakerFailures int           `envconfig:"GATEWAY_BREAKER_FAILURES" default:"5"`
	BreakerCooldown time.Duration `envconfig:"GATEWAY_BREAKER_COOLDOWN" default:"10s"`

	IdentityPrefix string `envconfig:"GATEWAY_IDENTITY_PREFIX" default:"/api/auth"`
	IdentityURL    string `envconfig:"GATEWAY_IDENTITY_URL" default:"http://localhost:3001"`
	IdentityStrip  bool   `envconfig:"GATEWAY_IDENTITY_STRIP" default:"false"`

	LedgerPrefix string `envconfig:"GATEWAY_LEDGER_PREFIX" default:"/api/payments"`
	LedgerURL    string `envconfig:"GATEWAY_LEDGER_URL" default:"http://localhost:3002"`
	LedgerStrip  bool   `envconfig:"GATEWAY_LEDGER_STRIP" default:"false"`
}

// Routes returns the route bindings in registration order.
func (g Gateway) Routes() []routing.Route {
	return []routing.Route{
		{Name: "identity", Prefix: g.IdentityPrefix, Backend: g.IdentityURL, StripPrefix: g.IdentityStrip},
		{Name: "ledger", Prefix: g.LedgerPrefix, Backend: g.LedgerURL, StripPrefix: g.LedgerStrip},
	}
}

// Storage drivers understood by the stores.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store configures one record-keeping service. Variables are read with the
// service prefix, e.g. IDENTITY_ADDR or LEDGER_DB_DSN.
type Store struct {
	Common `ignored:"true"`

	Addr     string `envconfig:"ADDR"`
	BasePath string `envconfig:"BASE_PATH"`
	Driver   string `envconfig:"DB_DRIVER"`
	DSN      string `envconfig:"DB_DSN"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`

	// BcryptCost only applies to the identity store.
	BcryptCost int `envconfig:"BCRYPT_COST" default:"10"`
}

// LoadGateway reads the router configuration from the environment.
func LoadGateway() (Gateway, error) {
	var c Gateway
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	return c, nil
}

// LoadIdentity reads the identity store configuration.
func LoadIdentity() (Store, error) {
	return loadStore("IDENTITY", Store{
		Addr:     ":3001",
		BasePath: "/api/auth",
		Driver:   DriverSQLite,
		DSN:      "file:identity.db?_pragma=busy_timeout(5000)",
	})
}

// LoadLedger reads the ledger store configuration.
func LoadLedger() (Store, error) {
	return loadStore("LEDGER", Store{
		Addr:     ":3002",
		BasePath: "/api/payments",
		Driver:   DriverSQLite,
		DSN:      "file:payments.db?_pragma=busy_timeout(5000)",
	})
}

// loadStore overlays environment values on defaults; fields without a
// default tag keep the prefilled value when the variable is unset.
func loadStore(prefix string, c Store) (Store, error) {
	if err := envconfig.Process("", &c.Common); err != nil {
		return c, err
	}
	if err := envconfig.Process(prefix, &c); err != nil {
		return c, err
	}
	switch c.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return c, fmt.Errorf("%s_DB_DRIVER: unsupported driver %q", prefix, c.Driver)
	}
	return c, nil
}
