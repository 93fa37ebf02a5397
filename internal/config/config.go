package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	CoreDatabaseURL string
	// DatabaseMaxConns caps the shared pgx pool. Zero keeps the pgx default.
	DatabaseMaxConns int32

	TemporalAddress       string
	TemporalNamespace     string
	TemporalTaskQueue     string
	TemporalTLSCert       string
	TemporalTLSKey        string
	TemporalTLSCACert     string
	TemporalTLSServerName string

	HTTPListenAddr string
	MetricsAddr    string
	LogLevel       string
	ServiceName    string
	// WorkerID identifies this pipeline worker in logs. Defaults to the hostname.
	WorkerID string

	ProviderBaseURL string
	ProviderAPIKey  string
	ProviderTimeout time.Duration

	WebhookTimeout time.Duration

	DeliveryMaxAttempts int
	WorkerConcurrency   int
}

func Load() (*Config, error) {
	hostname, _ := os.Hostname()

	cfg := &Config{
		CoreDatabaseURL:       getEnv("CORE_DATABASE_URL", ""),
		TemporalAddress:       getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalNamespace:     getEnv("TEMPORAL_NAMESPACE", "default"),
		TemporalTaskQueue:     getEnv("TEMPORAL_TASK_QUEUE", "email-delivery"),
		TemporalTLSCert:       getEnv("TEMPORAL_TLS_CERT", ""),
		TemporalTLSKey:        getEnv("TEMPORAL_TLS_KEY", ""),
		TemporalTLSCACert:     getEnv("TEMPORAL_TLS_CA_CERT", ""),
		TemporalTLSServerName: getEnv("TEMPORAL_TLS_SERVER_NAME", ""),
		HTTPListenAddr:        getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		ServiceName:           getEnv("SERVICE_NAME", ""),
		WorkerID:              getEnv("WORKER_ID", hostname),
		ProviderBaseURL:       getEnv("PROVIDER_BASE_URL", "https://api.resend.com"),
		ProviderAPIKey:        getEnv("PROVIDER_API_KEY", ""),
	}

	var err error
	maxConns, err := getEnvInt("DATABASE_MAX_CONNS", 0)
	if err != nil {
		return nil, err
	}
	cfg.DatabaseMaxConns = int32(maxConns)

	if cfg.ProviderTimeout, err = getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.WebhookTimeout, err = getEnvDuration("WEBHOOK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.DeliveryMaxAttempts, err = getEnvInt("DELIVERY_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = getEnvInt("WORKER_CONCURRENCY", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the fields required by the given binary are set.
func (c *Config) Validate(role string) error {
	var missing []string

	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch role {
	case "core-api":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("HTTP_LISTEN_ADDR", c.HTTPListenAddr)
	case "worker":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
		require("TEMPORAL_ADDRESS", c.TemporalAddress)
		require("PROVIDER_BASE_URL", c.ProviderBaseURL)
		require("PROVIDER_API_KEY", c.ProviderAPIKey)
	case "mailctl":
		require("CORE_DATABASE_URL", c.CoreDatabaseURL)
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config for %s: %s", role, strings.Join(missing, ", "))
	}

	if (c.TemporalTLSCert == "") != (c.TemporalTLSKey == "") {
		return fmt.Errorf("TEMPORAL_TLS_CERT and TEMPORAL_TLS_KEY must both be set")
	}

	if role == "worker" {
		if c.DeliveryMaxAttempts < 1 {
			return fmt.Errorf("DELIVERY_MAX_ATTEMPTS must be at least 1")
		}
		if c.WorkerConcurrency < 1 {
			return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
