package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/gymcrm")
	t.Setenv("AUTH0_DOMAIN", "gymcrm.eu.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.gymcrm.app")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "500", cfg.Billing.MonthlyFee.String())
	assert.Equal(t, "INR", cfg.Billing.Currency)
	assert.Equal(t, "Asia/Kolkata", cfg.Billing.Location.String())
	assert.Equal(t, 24, cfg.Billing.HistoryMaxMonths)
	assert.Empty(t, cfg.Billing.FinalizeCron)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "gymcrm.billing", cfg.RabbitMQ.Exchange)
	assert.Equal(t, 120, cfg.RateLimit.PerMinute)
	assert.Equal(t, 20, cfg.WebSocket.MaxConnectionsPerGym)
	assert.Equal(t, 64, cfg.WebSocket.SendBuffer)
	assert.Empty(t, cfg.S3.Bucket)
	assert.False(t, cfg.AutoMigrate)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("BILLING_MONTHLY_FEE", "750.50")
	t.Setenv("BUSINESS_TIMEZONE", "UTC")
	t.Setenv("ADMIN_AUTH0_IDS", "auth0|admin1, auth0|admin2 ,")
	t.Setenv("DASHBOARD_CACHE_TTL", "90s")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("BILLING_FINALIZE_CRON", "5 0 1 * *")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "750.5", cfg.Billing.MonthlyFee.String())
	assert.Equal(t, time.UTC, cfg.Billing.Location)
	assert.Equal(t, []string{"auth0|admin1", "auth0|admin2"}, cfg.AdminAuth0IDs)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, "5 0 1 * *", cfg.Billing.FinalizeCron)
}

func TestLoad_InvalidTimezoneFallsBackToUTC(t *testing.T) {
	setRequired(t)
	t.Setenv("BUSINESS_TIMEZONE", "Mars/Olympus_Mons")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Billing.Location)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"missing database", "DATABASE_URL", "", "DATABASE_URL"},
		{"bad fee", "BILLING_MONTHLY_FEE", "abc", "BILLING_MONTHLY_FEE"},
		{"negative fee", "BILLING_MONTHLY_FEE", "-1", "negative"},
		{"bad cache driver", "CACHE_DRIVER", "memcached", "CACHE_DRIVER"},
		{"zero history", "BILLING_HISTORY_MAX_MONTHS", "0", "BILLING_HISTORY_MAX_MONTHS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
