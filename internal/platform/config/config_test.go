package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerGelinas/socure/internal/decision"
	"github.com/TylerGelinas/socure/internal/verification/module"
)

const validYAML = `
server:
  addr: ":9090"
  jwt_signing_key: file-secret
verification:
  endpoint: https://sandbox.socure.com/api/3.0/EmailAuthScore
  api_key: file-key
  modules: [kyc, addressriskscore]
  timeout: 3s
  score_threshold: 0.8
identity:
  fixtures: identities.yaml
`

func TestLoadYAMLAppliesFileOverDefaults(t *testing.T) {
	cfg, err := LoadYAML([]byte(validYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Server.LogLevel, "unset fields keep defaults")
	assert.Equal(t, 3*time.Second, cfg.Verification.Timeout)
	assert.InDelta(t, 0.8, cfg.Verification.ScoreThreshold, 1e-9)
	assert.InDelta(t, 0.2, cfg.Verification.FieldValidationThreshold, 1e-9)
	assert.Equal(t, "identities.yaml", cfg.Identity.Fixtures)

	sel, err := cfg.Verification.Selection()
	require.NoError(t, err)
	assert.True(t, sel.Contains(module.KYC))
	assert.True(t, sel.Contains(module.AddressRiskScore))
	assert.Equal(t, 2, sel.Len())

	policy, err := cfg.Verification.Policy()
	require.NoError(t, err)
	assert.Equal(t, decision.PolicyFailOpen, policy)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	cfg, err := LoadYAML([]byte(validYAML), map[string]string{
		"API_KEY":             "env-key",
		"MODULES":             "sigmaidentityfraud,emailriskscore",
		"TIMEOUT":             "250ms",
		"INCONCLUSIVE_POLICY": "fail-closed",
		"RETRY_ATTEMPTS":      "3",
		"KAFKA_BROKERS":       "k1:9092,k2:9092",
		"IDENTITY_CACHE_SIZE": "0",
	})
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Verification.APIKey)
	assert.Equal(t, []string{"sigmaidentityfraud", "emailriskscore"}, cfg.Verification.Modules)
	assert.Equal(t, 250*time.Millisecond, cfg.Verification.Timeout)
	assert.Equal(t, uint(3), cfg.Verification.RetryAttempts)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Audit.KafkaBrokers)
	assert.Equal(t, 0, cfg.Identity.CacheSize)
	assert.Equal(t, ":9090", cfg.Server.Addr, "file value survives when env is unset")

	policy, err := cfg.Verification.Policy()
	require.NoError(t, err)
	assert.Equal(t, decision.PolicyFailClosed, policy)
}

func TestLoadReadsFileAndProcessEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))
	t.Setenv("SOCURE_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "file-key", cfg.Verification.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open config file")
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	_, err := LoadYAML([]byte("verification:\n  endpont: https://x\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config file")
}

func TestLoadYAMLRejectsBadEnvValue(t *testing.T) {
	_, err := LoadYAML([]byte(validYAML), map[string]string{"TIMEOUT": "soon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Verification.Endpoint = "https://sandbox.socure.com/api/3.0/EmailAuthScore"
		cfg.Verification.APIKey = "key"
		cfg.Server.JWTSigningKey = "secret"
		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing endpoint", func(c *Config) { c.Verification.Endpoint = "" }, "endpoint is required"},
		{"relative endpoint", func(c *Config) { c.Verification.Endpoint = "/api/3.0" }, "not an absolute URL"},
		{"missing api key", func(c *Config) { c.Verification.APIKey = "" }, "api key is required"},
		{"empty modules", func(c *Config) { c.Verification.Modules = nil }, "at least one verification module"},
		{"blank modules", func(c *Config) { c.Verification.Modules = []string{" , "} }, "at least one verification module"},
		{"unknown module", func(c *Config) { c.Verification.Modules = []string{"kyc", "horoscope"} }, "horoscope"},
		{"zero timeout", func(c *Config) { c.Verification.Timeout = 0 }, "timeout must be positive"},
		{"score above one", func(c *Config) { c.Verification.ScoreThreshold = 1.5 }, "score threshold"},
		{"negative field threshold", func(c *Config) { c.Verification.FieldValidationThreshold = -0.1 }, "field validation threshold"},
		{"unknown policy", func(c *Config) { c.Verification.InconclusivePolicy = "coin_flip" }, "coin_flip"},
		{"zero attempts", func(c *Config) { c.Verification.RetryAttempts = 0 }, "retry attempts"},
		{"breaker without cooldown", func(c *Config) { c.Verification.BreakerCooldown = 0 }, "breaker cooldown"},
		{"missing jwt key", func(c *Config) { c.Server.JWTSigningKey = "" }, "jwt signing key"},
		{"cache without ttl", func(c *Config) { c.Identity.CacheTTL = 0 }, "cache ttl"},
		{"negative audit memory capacity", func(c *Config) { c.Audit.MemoryCapacity = -1 }, "audit memory capacity"},
		{"brokers without topic", func(c *Config) {
			c.Audit.KafkaBrokers = []string{"localhost:9092"}
			c.Audit.Topic = ""
		}, "audit topic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")
	assert.Contains(t, err.Error(), "api key is required")
	assert.Contains(t, err.Error(), "jwt signing key")
}

func TestDisabledBreakerNeedsNoCooldown(t *testing.T) {
	cfg := Default()
	cfg.Verification.Endpoint = "http://localhost:8081/api/3.0/EmailAuthScore"
	cfg.Verification.APIKey = "key"
	cfg.Server.JWTSigningKey = "secret"
	cfg.Verification.BreakerFailures = 0
	cfg.Verification.BreakerCooldown = 0
	assert.NoError(t, cfg.Validate())
}
