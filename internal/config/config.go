// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime settings.
type Config struct {
	Env  string
	Port string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	RedisURL   string
	CacheTTLMS int

	AuthSecret   string
	AuthJWKSURL  string
	AuthIssuer   string
	AuthAudience string

	CORSOrigins []string

	MigrationsDir string
}

// Load reads configuration from environment variables and an optional .env
// file in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "postgres://localhost:5432/cliniq?sslmode=disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL_MS", 30000)
	v.SetDefault("AUTH_SECRET", "")
	v.SetDefault("AUTH_JWKS_URL", "")
	v.SetDefault("AUTH_ISSUER", "")
	v.SetDefault("AUTH_AUDIENCE", "")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		Env:           v.GetString("ENV"),
		Port:          v.GetString("PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		DBMaxConns:    v.GetInt32("DB_MAX_CONNS"),
		DBMinConns:    v.GetInt32("DB_MIN_CONNS"),
		RedisURL:      v.GetString("REDIS_URL"),
		CacheTTLMS:    v.GetInt("CACHE_TTL_MS"),
		AuthSecret:    v.GetString("AUTH_SECRET"),
		AuthJWKSURL:   v.GetString("AUTH_JWKS_URL"),
		AuthIssuer:    v.GetString("AUTH_ISSUER"),
		AuthAudience:  v.GetString("AUTH_AUDIENCE"),
		CORSOrigins:   splitOrigins(v.GetString("CORS_ORIGINS")),
		MigrationsDir: v.GetString("MIGRATIONS_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects configurations that are unsafe to run with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if c.AuthJWKSURL == "" && c.AuthSecret == "" {
			return fmt.Errorf("AUTH_JWKS_URL or AUTH_SECRET is required in production")
		}
		for _, o := range c.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("wildcard CORS origin is not allowed in production")
			}
		}
	}
	return nil
}
