package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "puntoventa"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Raw database variables honored when DSN is not set directly.
const (
	EnvDBDSN      = "PUNTOVENTA_DB_DSN"
	EnvDBHost     = "PUNTOVENTA_DB_HOST"
	EnvDBPort     = "PUNTOVENTA_DB_PORT"
	EnvDBUser     = "PUNTOVENTA_DB_USER"
	EnvDBPassword = "PUNTOVENTA_DB_PASSWORD"
	EnvDBName     = "PUNTOVENTA_DB_NAME"
	EnvDBSSLMode  = "PUNTOVENTA_DB_SSLMODE"
)

type App struct {
	Env         string `envconfig:"APP_ENV" default:"dev"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"puntoventa-api"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	WarnStack   bool   `envconfig:"LOG_WARN_STACK" default:"false"`

	ShutdownGrace time.Duration `envconfig:"SHUTDOWN_GRACE" default:"15s"`
}

func (a App) IsDev() bool {
	return a.Env == AppEnvDev
}

type DB struct {
	DSN string `envconfig:"DB_DSN"`

	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"puntoventa"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME" default:"puntoventa"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
}

// EnsureDSN assembles a postgres DSN from the discrete variables when
// DB_DSN was not provided.
func (d *DB) EnsureDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return d.DSN
}

type Redis struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	Timeout  time.Duration `envconfig:"REDIS_TIMEOUT" default:"3s"`

	IdempotencyTTL time.Duration `envconfig:"REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

// Sales carries the tax and currency parameters of the sale pipeline.
type Sales struct {
	TaxRate  decimal.Decimal `envconfig:"SALES_TAX_RATE" default:"0.18"`
	Currency string          `envconfig:"SALES_CURRENCY" default:"PEN"`
}

// Points holds the fallback loyalty program defaults seeded when the
// settings row does not exist yet.
type Points struct {
	SolsPerPoint        decimal.Decimal `envconfig:"POINTS_SOLES_PER_POINT" default:"10"`
	PointValue          decimal.Decimal `envconfig:"POINTS_POINT_VALUE" default:"0.10"`
	MinimumRedeemPoints int             `envconfig:"POINTS_MINIMUM_REDEEM" default:"50"`
	ExpiryDays          int             `envconfig:"POINTS_EXPIRY_DAYS" default:"365"`
	WelcomeBonus        int             `envconfig:"POINTS_WELCOME_BONUS" default:"0"`
	BirthdayBonus       int             `envconfig:"POINTS_BIRTHDAY_BONUS" default:"0"`
	ReferralBonus       int             `envconfig:"POINTS_REFERRAL_BONUS" default:"0"`
}

type Promotions struct {
	BirthdayGraceDays int `envconfig:"PROMOTIONS_BIRTHDAY_GRACE_DAYS" default:"0"`
}

type FeatureFlags struct {
	AutoMigrate bool `envconfig:"FEATURE_AUTO_MIGRATE" default:"false"`
}

type Outbox struct {
	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	MaxAttempts  int           `envconfig:"OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// Cron drives the maintenance worker: how often the cycle runs, how long
// abandoned tickets live, and how long published outbox rows are retained.
type Cron struct {
	Interval            time.Duration `envconfig:"CRON_INTERVAL" default:"1h"`
	LockTTL             time.Duration `envconfig:"CRON_LOCK_TTL" default:"50m"`
	TicketTTL           time.Duration `envconfig:"CRON_TICKET_TTL" default:"24h"`
	OutboxRetentionDays int           `envconfig:"CRON_OUTBOX_RETENTION_DAYS" default:"30"`
}

type PubSub struct {
	ProjectID string `envconfig:"PUBSUB_PROJECT_ID"`
	TopicID   string `envconfig:"PUBSUB_TOPIC_ID" default:"puntoventa-events"`
}

type Config struct {
	App          App
	DB           DB
	Redis        Redis
	Sales        Sales
	Points       Points
	Promotions   Promotions
	FeatureFlags FeatureFlags
	Outbox       Outbox
	Cron         Cron
	PubSub       PubSub
}

// Load reads configuration from the environment. A .env file is honored
// in dev so local runs do not need exported variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg.App); err != nil {
		return nil, fmt.Errorf("config: app: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.DB); err != nil {
		return nil, fmt.Errorf("config: db: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Redis); err != nil {
		return nil, fmt.Errorf("config: redis: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Sales); err != nil {
		return nil, fmt.Errorf("config: sales: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Points); err != nil {
		return nil, fmt.Errorf("config: points: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Promotions); err != nil {
		return nil, fmt.Errorf("config: promotions: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.FeatureFlags); err != nil {
		return nil, fmt.Errorf("config: feature flags: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Outbox); err != nil {
		return nil, fmt.Errorf("config: outbox: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.Cron); err != nil {
		return nil, fmt.Errorf("config: cron: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.PubSub); err != nil {
		return nil, fmt.Errorf("config: pubsub: %w", err)
	}

	cfg.DB.EnsureDSN()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate collects every misconfiguration instead of stopping at the first.
func (c *Config) Validate() error {
	var errs error

	switch c.App.Env {
	case AppEnvDev, AppEnvProd:
	default:
		errs = multierr.Append(errs, fmt.Errorf("config: APP_ENV must be %q or %q, got %q", AppEnvDev, AppEnvProd, c.App.Env))
	}
	if c.App.HTTPPort <= 0 || c.App.HTTPPort > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("config: HTTP_PORT out of range: %d", c.App.HTTPPort))
	}
	if c.DB.DSN == "" {
		errs = multierr.Append(errs, fmt.Errorf("config: database DSN could not be assembled, set %s or the %s_* variables", EnvDBDSN, strings.ToUpper(EnvPrefix)+"_DB"))
	}
	if c.Sales.TaxRate.IsNegative() || c.Sales.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = multierr.Append(errs, fmt.Errorf("config: SALES_TAX_RATE must be in [0,1), got %s", c.Sales.TaxRate))
	}
	if c.Points.SolsPerPoint.LessThanOrEqual(decimal.Zero) {
		errs = multierr.Append(errs, fmt.Errorf("config: POINTS_SOLES_PER_POINT must be positive, got %s", c.Points.SolsPerPoint))
	}
	if c.Points.MinimumRedeemPoints < 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: POINTS_MINIMUM_REDEEM must not be negative, got %d", c.Points.MinimumRedeemPoints))
	}
	if c.Outbox.BatchSize <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("config: OUTBOX_BATCH_SIZE must be positive, got %d", c.Outbox.BatchSize))
	}

	return errs
}

// MustLoad is for binaries where a bad environment should abort startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cfg
}
