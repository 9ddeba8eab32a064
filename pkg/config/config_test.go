package config

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PUNTOVENTA_DB_PASSWORD", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Env != AppEnvDev {
		t.Fatalf("expected dev env default, got %q", cfg.App.Env)
	}
	if cfg.App.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.App.HTTPPort)
	}
	if cfg.Sales.Currency != "PEN" {
		t.Fatalf("expected PEN currency, got %q", cfg.Sales.Currency)
	}
	if !cfg.Sales.TaxRate.Equal(decimal.RequireFromString("0.18")) {
		t.Fatalf("expected 0.18 tax rate, got %s", cfg.Sales.TaxRate)
	}
	if cfg.Points.MinimumRedeemPoints != 50 {
		t.Fatalf("expected minimum redeem 50, got %d", cfg.Points.MinimumRedeemPoints)
	}
}

func TestEnsureDSNAssemblesFromParts(t *testing.T) {
	db := DB{
		Host:     "db.internal",
		Port:     5433,
		User:     "pos",
		Password: "p@ss word",
		Name:     "tienda",
		SSLMode:  "require",
	}
	dsn := db.EnsureDSN()

	if !strings.HasPrefix(dsn, "postgres://pos:") {
		t.Fatalf("unexpected dsn prefix: %s", dsn)
	}
	if !strings.Contains(dsn, "db.internal:5433/tienda") {
		t.Fatalf("host/port/name missing from dsn: %s", dsn)
	}
	if !strings.Contains(dsn, "sslmode=require") {
		t.Fatalf("sslmode missing from dsn: %s", dsn)
	}
	if strings.Contains(dsn, "p@ss word") {
		t.Fatalf("password was not escaped: %s", dsn)
	}
}

func TestEnsureDSNPrefersExplicitDSN(t *testing.T) {
	db := DB{DSN: "postgres://explicit"}
	if dsn := db.EnsureDSN(); dsn != "postgres://explicit" {
		t.Fatalf("explicit DSN should win, got %s", dsn)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	cfg.App.Env = "staging"
	cfg.App.HTTPPort = -1
	cfg.Sales.TaxRate = decimal.RequireFromString("1.5")
	cfg.Points.SolsPerPoint = decimal.Zero
	cfg.Points.MinimumRedeemPoints = -3
	cfg.Outbox.BatchSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, fragment := range []string{"APP_ENV", "HTTP_PORT", "SALES_TAX_RATE", "POINTS_SOLES_PER_POINT", "POINTS_MINIMUM_REDEEM", "OUTBOX_BATCH_SIZE"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %s in validation error, got: %s", fragment, msg)
		}
	}
}

func TestLoadRejectsBadTaxRate(t *testing.T) {
	t.Setenv("PUNTOVENTA_SALES_TAX_RATE", "2.0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range tax rate")
	}
}
