package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/metallisense/metallisense/internal/domain/analysis"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "metallisense.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
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
	setString(&cfg.Server.Port, "METALLISENSE_PORT")
	setString(&cfg.Server.CORSOrigin, "METALLISENSE_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "METALLISENSE_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "METALLISENSE_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "METALLISENSE_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "METALLISENSE_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "METALLISENSE_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.MaxSizeMB, "METALLISENSE_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "METALLISENSE_CACHE_TTL")
	setString(&cfg.Logging.Level, "METALLISENSE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "METALLISENSE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "METALLISENSE_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "METALLISENSE_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "METALLISENSE_BREAKER_TIMEOUT")
	setString(&cfg.Anomaly.ModelPath, "METALLISENSE_ANOMALY_MODEL")
	setFloat64(&cfg.Anomaly.LowThreshold, "METALLISENSE_ANOMALY_LOW_THRESHOLD")
	setFloat64(&cfg.Anomaly.HighThreshold, "METALLISENSE_ANOMALY_HIGH_THRESHOLD")
	setString(&cfg.Alloy.ModelPath, "METALLISENSE_ALLOY_MODEL")
	setFloat64(&cfg.Alloy.MinAddition, "METALLISENSE_ALLOY_MIN_ADDITION")
	setFloat64(&cfg.Alloy.MaxAddition, "METALLISENSE_ALLOY_MAX_ADDITION")
	setString(&cfg.Policy.AlloyGateSeverity, "METALLISENSE_ALLOY_GATE_SEVERITY")
	setString(&cfg.Otel.Endpoint, "METALLISENSE_OTEL_ENDPOINT")
}

// validate rejects misconfiguration at startup so it can never surface
// at request time.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if cfg.Anomaly.LowThreshold <= 0 || cfg.Anomaly.HighThreshold <= cfg.Anomaly.LowThreshold || cfg.Anomaly.HighThreshold > 1 {
		return fmt.Errorf("anomaly thresholds must satisfy 0 < low < high <= 1, got low=%.4f high=%.4f",
			cfg.Anomaly.LowThreshold, cfg.Anomaly.HighThreshold)
	}
	if cfg.Alloy.MinAddition < 0 {
		return fmt.Errorf("alloy.min_addition must be >= 0, got %.4f", cfg.Alloy.MinAddition)
	}
	if cfg.Alloy.MaxAddition <= cfg.Alloy.MinAddition {
		return fmt.Errorf("alloy.max_addition must exceed min_addition, got max=%.4f min=%.4f",
			cfg.Alloy.MaxAddition, cfg.Alloy.MinAddition)
	}
	if _, ok := analysis.ParseSeverity(cfg.Policy.AlloyGateSeverity); !ok {
		return fmt.Errorf("policy.alloy_gate_severity must be LOW, MEDIUM or HIGH, got %q",
			cfg.Policy.AlloyGateSeverity)
	}
	if cfg.Breaker.MaxFailures <= 0 {
		return fmt.Errorf("breaker.max_failures must be positive, got %d", cfg.Breaker.MaxFailures)
	}
	return nil
}

// --- env helpers ---

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
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
