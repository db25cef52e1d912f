package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_PricingDefaults(t *testing.T) {
	t.Setenv("PRICING_REIMBURSABLE_CODES", "")
	t.Setenv("PRICING_WORKERS", "")
	t.Setenv("PRICING_LOCK_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{1, 11}, cfg.Pricing.ReimbursableCodes)
	assert.Equal(t, 1, cfg.Pricing.AvailableCode)
	assert.Equal(t, 4, cfg.Pricing.Workers)
	assert.Equal(t, 5, cfg.Pricing.SimilarCandidateLimit)
	assert.Equal(t, 30*time.Minute, cfg.Pricing.LockTTL)
}

func TestLoad_PricingOverrides(t *testing.T) {
	t.Setenv("PRICING_REIMBURSABLE_CODES", "1, 2,11")
	t.Setenv("PRICING_WORKERS", "8")
	t.Setenv("PRICING_LOCK_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 11}, cfg.Pricing.ReimbursableCodes)
	assert.Equal(t, 8, cfg.Pricing.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Pricing.LockTTL)
}

func TestLoad_InvalidReimbursableCodes(t *testing.T) {
	t.Setenv("PRICING_REIMBURSABLE_CODES", "1,abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsNonPositiveWorkers(t *testing.T) {
	t.Setenv("PRICING_WORKERS", "-2")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TypesenseConfig(t *testing.T) {
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	t.Setenv("TYPESENSE_API_KEY", "test-key")
	t.Setenv("TYPESENSE_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Typesense.Enabled)
	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
}

func TestLoad_PostgresStoreDefaultsToDatabaseDSN(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("STORE_LOCATION", "")
	t.Setenv("DB_DSN", "postgres://pricer@db:5432/dmd")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://pricer@db:5432/dmd", cfg.Store.Location)
}

func TestResolveStore(t *testing.T) {
	tests := []struct {
		name     string
		base     StoreConfig
		location string
		want     StoreConfig
	}{
		{
			name:     "postgres url",
			location: "postgres://user:pw@db:5432/dmd?sslmode=disable",
			want:     StoreConfig{Driver: DriverPostgres, Location: "postgres://user:pw@db:5432/dmd?sslmode=disable"},
		},
		{
			name:     "key value dsn",
			location: "host=db dbname=dmd",
			want:     StoreConfig{Driver: DriverPostgres, Location: "host=db dbname=dmd"},
		},
		{
			name:     "sqlite path",
			location: "data/dmd.db",
			want:     StoreConfig{Driver: DriverSQLite, Location: "data/dmd.db"},
		},
		{
			name:     "falls back to configured location",
			base:     StoreConfig{Location: "/var/lib/dmd.db"},
			location: "  ",
			want:     StoreConfig{Driver: DriverSQLite, Location: "/var/lib/dmd.db"},
		},
		{
			name:     "explicit driver wins",
			base:     StoreConfig{Driver: DriverPostgres},
			location: "dmd.db",
			want:     StoreConfig{Driver: DriverPostgres, Location: "dmd.db"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.base.ResolveStore(tt.location))
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "dmd", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=dmd sslmode=disable", cfg.DatabaseDSN())

	cfg.DSN = "postgres://override"
	assert.Equal(t, "postgres://override", cfg.DatabaseDSN())
}
