package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/codeexec/gateway/internal/limits"
	"github.com/codeexec/gateway/internal/ratelimit"
	"github.com/codeexec/gateway/pkg/types"
)

// APIKeyConfig is one parsed entry of CODEEXEC_API_KEYS: a bearer token,
// the tenant label it authenticates as, and an optional per-tenant rate
// limit override (zero means "use the process default").
type APIKeyConfig struct {
	Token string
	Label string
	RPS   float64
	Burst float64
}

// Config holds all configuration for the gateway process.
type Config struct {
	Port     int
	LogLevel string

	// Auth. Each entry of CODEEXEC_API_KEYS has the form
	// "token:label:rps:burst" — rps/burst are optional per-tenant rate
	// limit overrides, matching spec.md §6's configuration format.
	JWTSecret string
	APIKeys   []APIKeyConfig

	// NATS stream hub (empty NATSURL falls back to an in-process bus)
	NATSURL string

	// Redis-backed rate limiter (empty RedisURL falls back to per-process memory)
	RedisURL string

	// Filesystem paths
	WorkRoot     string // scratch directory for staged run workdirs
	ArtifactRoot string // content-addressed artifact store root
	ProfilesDir  string // generated seccomp profiles

	// Podman
	PodmanBinary string

	// Signed artifact download URLs
	SignedURLSecret string
	SignedURLTTL    time.Duration

	// Default run limits, overridable per-request within policy bounds
	DefaultTimeoutMS        int64
	DefaultMemoryMB         int64
	DefaultCPUMS            int64
	DefaultMaxOutputBytes   int64
	DefaultMaxArtifactBytes int64
	DefaultMaxArtifactFiles int

	MaxTimeoutMS        int64
	MaxMemoryMB         int64
	MaxCPUMS            int64
	MaxOutputBytes      int64
	MaxArtifactBytes    int64
	MaxArtifactFiles    int

	// Rate limiting
	DefaultRPS   float64
	DefaultBurst int

	// AWS Secrets Manager — if set, secrets are fetched at startup using IAM
	// credentials. The secret should be a JSON object with keys matching env
	// var names (e.g. CODEEXEC_JWT_SECRET). Env vars take precedence over
	// secret values, so a local override always wins.
	SecretsARN string
}

// Load reads configuration from environment variables with sensible
// defaults. If CODEEXEC_SECRETS_ARN is set, secrets are fetched from AWS
// Secrets Manager first, then environment variables are applied on top.
func Load() (*Config, error) {
	if arn := os.Getenv("CODEEXEC_SECRETS_ARN"); arn != "" {
		if err := loadSecretsManager(arn); err != nil {
			return nil, fmt.Errorf("failed to load secrets from %s: %w", arn, err)
		}
	}

	cfg := &Config{
		Port:     8080,
		LogLevel: envOrDefault("CODEEXEC_LOG_LEVEL", "info"),

		JWTSecret: os.Getenv("CODEEXEC_JWT_SECRET"),
		APIKeys:   parseAPIKeys(os.Getenv("CODEEXEC_API_KEYS")),

		NATSURL:  os.Getenv("CODEEXEC_NATS_URL"),
		RedisURL: os.Getenv("CODEEXEC_REDIS_URL"),

		WorkRoot:     envOrDefault("CODEEXEC_WORK_ROOT", "/var/lib/codeexec/work"),
		ArtifactRoot: envOrDefault("CODEEXEC_ARTIFACT_ROOT", "/var/lib/codeexec/artifacts"),
		ProfilesDir:  envOrDefault("CODEEXEC_PROFILES_DIR", "/var/lib/codeexec/seccomp"),

		PodmanBinary: envOrDefault("CODEEXEC_PODMAN_BINARY", "podman"),

		SignedURLSecret: os.Getenv("CODEEXEC_SIGNED_URL_SECRET"),
		SignedURLTTL:    envOrDefaultDuration("CODEEXEC_SIGNED_URL_TTL", 15*time.Minute),

		DefaultTimeoutMS:        envOrDefaultInt64("CODEEXEC_DEFAULT_TIMEOUT_MS", 10_000),
		DefaultMemoryMB:         envOrDefaultInt64("CODEEXEC_DEFAULT_MEMORY_MB", 256),
		DefaultCPUMS:            envOrDefaultInt64("CODEEXEC_DEFAULT_CPU_MS", 10_000),
		DefaultMaxOutputBytes:   envOrDefaultInt64("CODEEXEC_DEFAULT_MAX_OUTPUT_BYTES", 256<<10),
		DefaultMaxArtifactBytes: envOrDefaultInt64("CODEEXEC_DEFAULT_MAX_ARTIFACT_BYTES", 10<<20),
		DefaultMaxArtifactFiles: envOrDefaultInt("CODEEXEC_DEFAULT_MAX_ARTIFACT_FILES", 20),

		MaxTimeoutMS:     envOrDefaultInt64("CODEEXEC_MAX_TIMEOUT_MS", 30_000),
		MaxMemoryMB:      envOrDefaultInt64("CODEEXEC_MAX_MEMORY_MB", 1024),
		MaxCPUMS:         envOrDefaultInt64("CODEEXEC_MAX_CPU_MS", 30_000),
		MaxOutputBytes:   envOrDefaultInt64("CODEEXEC_MAX_OUTPUT_BYTES", 1<<20),
		MaxArtifactBytes: envOrDefaultInt64("CODEEXEC_MAX_ARTIFACT_BYTES", 50<<20),
		MaxArtifactFiles: envOrDefaultInt("CODEEXEC_MAX_ARTIFACT_FILES", 100),

		DefaultRPS:   envOrDefaultFloat("CODEEXEC_DEFAULT_RPS", 5),
		DefaultBurst: envOrDefaultInt("CODEEXEC_DEFAULT_BURST", 10),

		SecretsARN: os.Getenv("CODEEXEC_SECRETS_ARN"),
	}

	if portStr := os.Getenv("CODEEXEC_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid CODEEXEC_PORT %q: %w", portStr, err)
		}
		cfg.Port = port
	}

	return cfg, nil
}

// LimitsPolicy builds the run-limits policy the orchestrator merges every
// request against, from this config's defaults and maxima.
func (c *Config) LimitsPolicy() limits.Policy {
	return limits.Policy{
		Defaults: types.RunLimits{
			TimeoutMS:        c.DefaultTimeoutMS,
			MemoryMB:         c.DefaultMemoryMB,
			CPUMS:            c.DefaultCPUMS,
			MaxOutputBytes:   c.DefaultMaxOutputBytes,
			MaxArtifactBytes: c.DefaultMaxArtifactBytes,
			MaxArtifactFiles: c.DefaultMaxArtifactFiles,
		},
		Max: types.RunLimits{
			TimeoutMS:        c.MaxTimeoutMS,
			MemoryMB:         c.MaxMemoryMB,
			CPUMS:            c.MaxCPUMS,
			MaxOutputBytes:   c.MaxOutputBytes,
			MaxArtifactBytes: c.MaxArtifactBytes,
			MaxArtifactFiles: c.MaxArtifactFiles,
		},
	}
}

// TenantKeys converts the parsed API keys into a bearer-token-to-tenant-label
// map, suitable for auth.TenantKeys.
func (c *Config) TenantKeys() map[string]string {
	keys := make(map[string]string, len(c.APIKeys))
	for _, k := range c.APIKeys {
		keys[k.Token] = k.Label
	}
	return keys
}

// RateLimitConfig builds the token-bucket configuration for
// internal/ratelimit from this config's default rate/burst plus any
// per-tenant overrides carried in CODEEXEC_API_KEYS.
func (c *Config) RateLimitConfig() ratelimit.Config {
	perKey := make(map[string]ratelimit.KeyConfig)
	for _, k := range c.APIKeys {
		if k.RPS > 0 || k.Burst > 0 {
			perKey[k.Label] = ratelimit.KeyConfig{RPS: k.RPS, Burst: k.Burst}
		}
	}
	return ratelimit.Config{
		DefaultRPS:   c.DefaultRPS,
		DefaultBurst: float64(c.DefaultBurst),
		PerKey:       perKey,
	}
}

// parseAPIKeys parses a comma-separated list of "token:label:rps:burst"
// entries. rps and burst are optional; a malformed rps/burst falls back
// to zero (use the process default). Entries missing even the label are
// skipped.
func parseAPIKeys(raw string) []APIKeyConfig {
	if raw == "" {
		return nil
	}
	var out []APIKeyConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, ":")
		if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
			continue
		}
		kc := APIKeyConfig{Token: fields[0], Label: fields[1]}
		if len(fields) >= 3 {
			if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
				kc.RPS = v
			}
		}
		if len(fields) >= 4 {
			if v, err := strconv.ParseFloat(fields[3], 64); err == nil {
				kc.Burst = v
			}
		}
		out = append(out, kc)
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// loadSecretsManager fetches a JSON secret from AWS Secrets Manager and sets
// any values as environment variables (only if not already set, so explicit
// env vars always win). Uses the default AWS credential chain (IAM instance
// profile in production, or ~/.aws/credentials locally).
func loadSecretsManager(arn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if parts := strings.Split(arn, ":"); len(parts) >= 4 && parts[3] != "" {
		opts = append(opts, awsconfig.WithRegion(parts[3]))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &arn,
	})
	if err != nil {
		return fmt.Errorf("GetSecretValue: %w", err)
	}

	if result.SecretString == nil {
		return fmt.Errorf("secret %s has no string value", arn)
	}

	var secrets map[string]string
	if err := json.Unmarshal([]byte(*result.SecretString), &secrets); err != nil {
		return fmt.Errorf("parse secret JSON: %w", err)
	}

	applied := 0
	for key, value := range secrets {
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
			applied++
		}
	}

	log.Printf("config: loaded %d secrets from Secrets Manager (%d keys in secret, env overrides take precedence)", applied, len(secrets))
	return nil
}
