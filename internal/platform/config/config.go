// Package config loads gateway configuration from an optional YAML file
// overlaid by SOCURE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/TylerGelinas/socure/internal/decision"
	"github.com/TylerGelinas/socure/internal/verification/module"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SOCURE_"

// Config is the full gateway configuration.
type Config struct {
	Server       Server       `yaml:"server"`
	Verification Verification `yaml:"verification"`
	Identity     Identity     `yaml:"identity"`
	Audit        Audit        `yaml:"audit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	Environment     string        `yaml:"environment" env:"ENVIRONMENT"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	JWTSigningKey   string        `yaml:"jwt_signing_key" env:"JWT_SIGNING_KEY"`
	JWTIssuer       string        `yaml:"jwt_issuer" env:"JWT_ISSUER"`
	JWTAudience     string        `yaml:"jwt_audience" env:"JWT_AUDIENCE"`
	TrustedProxies  []string      `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" envSeparator:","`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Verification configures the outbound ID+ call and how its result is judged.
type Verification struct {
	Endpoint                 string        `yaml:"endpoint" env:"ENDPOINT"`
	APIKey                   string        `yaml:"api_key" env:"API_KEY"`
	Modules                  []string      `yaml:"modules" env:"MODULES" envSeparator:","`
	Timeout                  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ScoreThreshold           float64       `yaml:"score_threshold" env:"SCORE_THRESHOLD"`
	FieldValidationThreshold float64       `yaml:"field_validation_threshold" env:"FIELD_VALIDATION_THRESHOLD"`
	InconclusivePolicy       string        `yaml:"inconclusive_policy" env:"INCONCLUSIVE_POLICY"`
	RetryAttempts            uint          `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryDelay               time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	// BreakerFailures of 0 disables the circuit breaker.
	BreakerFailures int           `yaml:"breaker_failures" env:"BREAKER_FAILURES"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" env:"BREAKER_COOLDOWN"`
}

// Identity selects where identity records come from. DatabaseURL wins over
// Fixtures; with neither, the store starts empty.
type Identity struct {
	DatabaseURL string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL    string        `yaml:"redis_url" env:"REDIS_URL"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"IDENTITY_CACHE_TTL"`
	// CacheSize bounds the in-process cache used when RedisURL is empty. 0 disables it.
	CacheSize int    `yaml:"cache_size" env:"IDENTITY_CACHE_SIZE"`
	Fixtures  string `yaml:"fixtures" env:"IDENTITY_FIXTURES"`
}

// Audit configures the decision audit sink. Without brokers events go to the
// identity database when one is configured, else to a bounded memory store.
type Audit struct {
	KafkaBrokers []string `yaml:"kafka_brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string   `yaml:"topic" env:"AUDIT_TOPIC"`
	// Partitions and ReplicationFactor are used when the topic has to be created.
	Partitions        int32 `yaml:"partitions" env:"AUDIT_PARTITIONS"`
	ReplicationFactor int16 `yaml:"replication_factor" env:"AUDIT_REPLICATION_FACTOR"`
	AsyncBuffer       int   `yaml:"async_buffer" env:"AUDIT_ASYNC_BUFFER"`
	// MemoryCapacity is how many events the in-memory fallback retains.
	MemoryCapacity int `yaml:"memory_capacity" env:"AUDIT_MEMORY_CAPACITY"`
}

// Default returns the configuration used for anything neither the file nor
// the environment sets.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			Environment:     "development",
			LogLevel:        "info",
			JWTIssuer:       "socure-gateway",
			JWTAudience:     "socure-decision",
			ShutdownTimeout: 15 * time.Second,
		},
		Verification: Verification{
			Modules:                  []string{"kyc"},
			Timeout:                  10 * time.Second,
			ScoreThreshold:           0.9,
			FieldValidationThreshold: 0.2,
			InconclusivePolicy:       string(decision.PolicyFailOpen),
			RetryAttempts:            1,
			RetryDelay:               200 * time.Millisecond,
			BreakerFailures:          5,
			BreakerCooldown:          30 * time.Second,
		},
		Identity: Identity{
			CacheTTL:  5 * time.Minute,
			CacheSize: 10_000,
		},
		Audit: Audit{
			Topic:             "socure.decision.audit",
			Partitions:        3,
			ReplicationFactor: 1,
			AsyncBuffer:       1024,
			MemoryCapacity:    10_000,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then the environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only
		if err := cfg.decodeYAML(f); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(nil); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decodeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config file: %w", err)
	}
	return nil
}

// LoadYAML is Load for an in-memory document without reading the process
// environment. environ overrides take the form of unprefixed names, e.g. "API_KEY".
func LoadYAML(data []byte, environ map[string]string) (*Config, error) {
	cfg := Default()
	if err := cfg.decodeYAML(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if environ == nil {
		environ = map[string]string{}
	}
	if err := cfg.applyEnv(environ); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. A nil environ reads the process
// environment. Unset variables leave the current value untouched.
func (c *Config) applyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		prefixed := make(map[string]string, len(environ))
		for k, v := range environ {
			prefixed[EnvPrefix+k] = v
		}
		opts.Environment = prefixed
	}
	for _, target := range []any{&c.Server, &c.Verification, &c.Identity, &c.Audit} {
		if err := env.ParseWithOptions(target, opts); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	v := c.Verification
	if v.Endpoint == "" {
		errs = append(errs, errors.New("verification endpoint is required"))
	} else if u, err := url.Parse(v.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("verification endpoint %q is not an absolute URL", v.Endpoint))
	}
	if v.APIKey == "" {
		errs = append(errs, errors.New("verification api key is required"))
	}
	if sel, err := module.ParseSelection(v.Modules); err != nil {
		errs = append(errs, err)
	} else if sel.IsEmpty() {
		errs = append(errs, errors.New("at least one verification module is required"))
	}
	if v.Timeout <= 0 {
		errs = append(errs, errors.New("verification timeout must be positive"))
	}
	if v.ScoreThreshold < 0 || v.ScoreThreshold > 1 {
		errs = append(errs, fmt.Errorf("score threshold %v must be within [0,1]", v.ScoreThreshold))
	}
	if v.FieldValidationThreshold < 0 || v.FieldValidationThreshold > 1 {
		errs = append(errs, fmt.Errorf("field validation threshold %v must be within [0,1]", v.FieldValidationThreshold))
	}
	if _, err := decision.ParsePolicy(v.InconclusivePolicy); err != nil {
		errs = append(errs, err)
	}
	if v.RetryAttempts == 0 {
		errs = append(errs, errors.New("retry attempts must be at least 1"))
	}
	if v.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay must not be negative"))
	}
	if v.BreakerFailures < 0 {
		errs = append(errs, errors.New("breaker failures must not be negative"))
	}
	if v.BreakerFailures > 0 && v.BreakerCooldown <= 0 {
		errs = append(errs, errors.New("breaker cooldown must be positive"))
	}

	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("jwt signing key is required"))
	}
	if c.Identity.CacheSize < 0 {
		errs = append(errs, errors.New("identity cache size must not be negative"))
	}
	if (c.Identity.CacheSize > 0 || c.Identity.RedisURL != "") && c.Identity.CacheTTL <= 0 {
		errs = append(errs, errors.New("identity cache ttl must be positive"))
	}
	if c.Audit.MemoryCapacity < 0 {
		errs = append(errs, errors.New("audit memory capacity must not be negative"))
	}
	if len(c.Audit.KafkaBrokers) > 0 {
		if c.Audit.Topic == "" {
			errs = append(errs, errors.New("audit topic is required when kafka brokers are set"))
		}
		if c.Audit.Partitions <= 0 || c.Audit.ReplicationFactor <= 0 {
			errs = append(errs, errors.New("audit partitions and replication factor must be positive"))
		}
	}

	return errors.Join(errs...)
}

// Selection returns the parsed module selection. Call after Validate.
func (v Verification) Selection() (module.Selection, error) {
	return module.ParseSelection(v.Modules)
}

// Policy returns the parsed inconclusive policy. Call after Validate.
func (v Verification) Policy() (decision.Policy, error) {
	return decision.ParsePolicy(v.InconclusivePolicy)
}
