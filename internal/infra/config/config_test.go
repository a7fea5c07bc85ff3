package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := fromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "*/30 * * * *", cfg.CronSpecReconcile)
	assert.Equal(t, 2*time.Minute, cfg.ReconcileTimeout)
	assert.True(t, cfg.RunMigrations)
	assert.Empty(t, cfg.TelegramToken)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/console?sslmode=disable")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("ADMIN_TELEGRAM_ID", "12345")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RECONCILE_TIMEOUT", "45s")
	t.Setenv("RUN_MIGRATIONS", "false")

	cfg, err := fromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, int64(12345), cfg.AdminTelegramID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 45*time.Second, cfg.ReconcileTimeout)
	assert.False(t, cfg.RunMigrations)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"token without admin", map[string]string{"STORE_DRIVER": "memory", "TELEGRAM_TOKEN": "token", "ADMIN_TELEGRAM_ID": ""}},
		{"zero timeout", map[string]string{"STORE_DRIVER": "memory", "RECONCILE_TIMEOUT": "0s"}},
		{"bad cron spec", map[string]string{"STORE_DRIVER": "memory", "CRON_SPEC_RECONCILE": "every day"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := fromViper(newViper())
			assert.Error(t, err)
		})
	}
}
