package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the service and worker.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"45s"`
	RateLimit         int           `envconfig:"RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// PGDSN enables the invoice history store when set.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"8"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"15m"`
	JobStatusTTL  time.Duration `envconfig:"JOB_STATUS_TTL" default:"24h"`

	DefaultTolerance   float64 `envconfig:"DEFAULT_TOLERANCE" default:"0.05"`
	DuplicateThreshold float64 `envconfig:"DUPLICATE_THRESHOLD" default:"0.95"`
	MinFieldConfidence float64 `envconfig:"MIN_FIELD_CONFIDENCE" default:"0"`
	BatchWorkers       int     `envconfig:"BATCH_WORKERS" default:"4"`
	WorkerConcurrency  int     `envconfig:"WORKER_CONCURRENCY" default:"5"`
	RiskPolicyPath     string  `envconfig:"RISK_POLICY_PATH"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultTolerance < 0 || c.DefaultTolerance > 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_TOLERANCE must be within [0,1], got %v", c.DefaultTolerance))
	}
	if c.DuplicateThreshold <= 0 || c.DuplicateThreshold > 1 {
		errs = append(errs, fmt.Errorf("DUPLICATE_THRESHOLD must be within (0,1], got %v", c.DuplicateThreshold))
	}
	if c.MinFieldConfidence < 0 || c.MinFieldConfidence > 1 {
		errs = append(errs, fmt.Errorf("MIN_FIELD_CONFIDENCE must be within [0,1], got %v", c.MinFieldConfidence))
	}
	if c.BatchWorkers <= 0 {
		errs = append(errs, errors.New("BATCH_WORKERS must be positive"))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
