package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "quality-core.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "QUALITY_PORT")
	setString(&cfg.Server.CORSOrigin, "QUALITY_CORS_ORIGIN")
	setDuration(&cfg.Server.RequestTimeout, "QUALITY_REQUEST_TIMEOUT")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "QUALITY_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "QUALITY_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "QUALITY_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "QUALITY_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "QUALITY_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Collaborators.IdentityURL, "QUALITY_IDENTITY_URL")
	setString(&cfg.Collaborators.DocumentURL, "QUALITY_DOCUMENT_URL")
	setString(&cfg.Collaborators.NotificationURL, "QUALITY_NOTIFICATION_URL")
	setDuration(&cfg.Collaborators.Timeout, "QUALITY_COLLABORATOR_TIMEOUT")
	setString(&cfg.Auth.JWTSecret, "QUALITY_JWT_SECRET")
	setDuration(&cfg.Auth.ClaimsTTL, "QUALITY_CLAIMS_TTL")
	setUint(&cfg.Saga.MaxAttempts, "QUALITY_SAGA_MAX_ATTEMPTS")
	setDuration(&cfg.Saga.Base, "QUALITY_SAGA_BASE")
	setDuration(&cfg.Saga.Cap, "QUALITY_SAGA_CAP")
	setFloat64(&cfg.Saga.Multiplier, "QUALITY_SAGA_MULTIPLIER")
	setInt(&cfg.Breaker.MaxFailures, "QUALITY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "QUALITY_BREAKER_TIMEOUT")
	setString(&cfg.Logging.Level, "QUALITY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "QUALITY_LOG_SERVICE")
	setInt64(&cfg.Cache.MaxSizeMB, "QUALITY_CACHE_SIZE_MB")
	setString(&cfg.Idempotency.Bucket, "QUALITY_IDEMPOTENCY_BUCKET")
	setDuration(&cfg.Idempotency.TTL, "QUALITY_IDEMPOTENCY_TTL")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Collaborators.IdentityURL == "" {
		return errors.New("collaborators.identity_url is required")
	}
	if cfg.Saga.MaxAttempts < 1 {
		return errors.New("saga.max_attempts must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint(dst *uint, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = uint(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
