package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	StoreDriver       string
	DatabaseURL       string
	RunMigrations     bool
	TelegramToken     string // empty disables the operator bot
	AdminTelegramID   int64
	LogLevel          string
	Environment       string
	CronSpecReconcile string
	ReconcileTimeout  time.Duration
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	v.SetDefault("STORE_DRIVER", DriverPostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("RUN_MIGRATIONS", true)
	v.SetDefault("TELEGRAM_TOKEN", "")
	v.SetDefault("ADMIN_TELEGRAM_ID", int64(0))
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("CRON_SPEC_RECONCILE", "*/30 * * * *") // every 30 minutes
	v.SetDefault("RECONCILE_TIMEOUT", 2*time.Minute)
	v.AutomaticEnv()
	return v
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()
	return fromViper(newViper())
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		StoreDriver:       strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RunMigrations:     v.GetBool("RUN_MIGRATIONS"),
		TelegramToken:     v.GetString("TELEGRAM_TOKEN"),
		AdminTelegramID:   v.GetInt64("ADMIN_TELEGRAM_ID"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		Environment:       strings.ToLower(v.GetString("ENVIRONMENT")),
		CronSpecReconcile: v.GetString("CRON_SPEC_RECONCILE"),
		ReconcileTimeout:  v.GetDuration("RECONCILE_TIMEOUT"),
	}

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, DriverPostgres, DriverMemory)
	}

	if cfg.TelegramToken != "" && cfg.AdminTelegramID == 0 {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	if _, err := cron.ParseStandard(cfg.CronSpecReconcile); err != nil {
		return nil, fmt.Errorf("invalid CRON_SPEC_RECONCILE %q: %w", cfg.CronSpecReconcile, err)
	}
	if cfg.ReconcileTimeout <= 0 {
		return nil, fmt.Errorf("invalid RECONCILE_TIMEOUT: %s", cfg.ReconcileTimeout)
	}
	return cfg, nil
}
