package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Records backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	ReferenceDataDir     string        `mapstructure:"REFERENCE_DATA_DIR"`
	RecordsBackend       string        `mapstructure:"RECORDS_BACKEND"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	SQLitePath           string        `mapstructure:"SQLITE_PATH"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	AutoMigrate          bool          `mapstructure:"AUTO_MIGRATE"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS         float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst       int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit            string        `mapstructure:"BODY_LIMIT"`
	AuthIssuer           string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience         string        `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL          string        `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey       string        `mapstructure:"AUTH_SIGNING_KEY"`
	NotificationInterval time.Duration `mapstructure:"NOTIFICATION_INTERVAL"`
	ExportMaxRecords     int           `mapstructure:"EXPORT_MAX_RECORDS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "REFERENCE_DATA_DIR", "RECORDS_BACKEND",
	"DATABASE_URL", "SQLITE_PATH", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTO_MIGRATE", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "BODY_LIMIT", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"AUTH_JWKS_URL", "AUTH_SIGNING_KEY", "NOTIFICATION_INTERVAL",
	"EXPORT_MAX_RECORDS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REFERENCE_DATA_DIR", "")
	v.SetDefault("RECORDS_BACKEND", BackendMemory)
	v.SetDefault("SQLITE_PATH", "anthrogizi.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("NOTIFICATION_INTERVAL", "20s")
	v.SetDefault("EXPORT_MAX_RECORDS", 1000)

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.RecordsBackend = strings.ToLower(strings.TrimSpace(cfg.RecordsBackend))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is consistent enough to start.
func (c *Config) Validate() error {
	switch c.RecordsBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when RECORDS_BACKEND is %q", BackendPostgres)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when RECORDS_BACKEND is %q", BackendSQLite)
		}
	default:
		return fmt.Errorf("RECORDS_BACKEND must be %q, %q or %q, got %q",
			BackendMemory, BackendPostgres, BackendSQLite, c.RecordsBackend)
	}

	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY or AUTH_JWKS_URL must be set when ENV=%q", c.Env)
	}
	// The bundled tables are sample data.
	if !c.IsDev() && c.ReferenceDataDir == "" {
		return fmt.Errorf("REFERENCE_DATA_DIR is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes")
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.NotificationInterval < time.Second {
		return fmt.Errorf("NOTIFICATION_INTERVAL must be at least 1s, got %s", c.NotificationInterval)
	}
	if c.ExportMaxRecords <= 0 {
		return fmt.Errorf("EXPORT_MAX_RECORDS must be positive")
	}
	return nil
}
