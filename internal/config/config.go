// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty until DB is wired.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "staging", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	// Empty disables exporters (no-op providers).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// RateLimitWindow is the ingestion rate-limit window per product (e.g. "60s").
	RateLimitWindow string `mapstructure:"RATE_LIMIT_WINDOW"`
	// RateLimitMax is the max accepted events per product per window.
	RateLimitMax int `mapstructure:"RATE_LIMIT_MAX"`

	// SpikeThreshold is the multiplier over the 7-day hourly baseline that triggers an alert.
	SpikeThreshold float64 `mapstructure:"SPIKE_THRESHOLD"`
	// SpikeCooldown is the minimum time between alerts for one product (e.g. "6h").
	SpikeCooldown string `mapstructure:"SPIKE_COOLDOWN"`
	// SpikeMinCount is the absolute floor for alerting a product with no baseline history.
	SpikeMinCount int `mapstructure:"SPIKE_MIN_COUNT"`
	// SpikeScanInterval is how often the worker runs the spike detector (e.g. "5m").
	SpikeScanInterval string `mapstructure:"SPIKE_SCAN_INTERVAL"`

	// CorrelationWindowHours is the default deploy-correlation window on each side of a deploy.
	CorrelationWindowHours int `mapstructure:"CORRELATION_WINDOW_HOURS"`
	// CorrelationBucketMinutes is the default deploy-correlation bucket width.
	CorrelationBucketMinutes int `mapstructure:"CORRELATION_BUCKET_MINUTES"`

	// Alert pipeline (optional). When Kafka brokers are set, triggered spike alerts are published to Kafka.
	// AlertKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	AlertKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AlertKafkaTopic is the Kafka topic for spike alerts (default watchpost-alerts).
	AlertKafkaTopic string `mapstructure:"ALERT_KAFKA_TOPIC"`

	// Worker-only: webhook URL the alert worker delivers spike alerts to.
	AlertWebhookURL string `mapstructure:"ALERT_WEBHOOK_URL"`
	// KafkaGroupID is the consumer group ID for the alert worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("RATE_LIMIT_WINDOW", "60s")
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("SPIKE_THRESHOLD", 3.0)
	v.SetDefault("SPIKE_COOLDOWN", "6h")
	v.SetDefault("SPIKE_MIN_COUNT", 10)
	v.SetDefault("SPIKE_SCAN_INTERVAL", "5m")
	v.SetDefault("CORRELATION_WINDOW_HOURS", 1)
	v.SetDefault("CORRELATION_BUCKET_MINUTES", 15)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ALERT_KAFKA_TOPIC", "watchpost-alerts")
	v.SetDefault("ALERT_WEBHOOK_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "watchpost-alert-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.RateLimitMax <= 0 {
		return nil, errors.New("config: RATE_LIMIT_MAX must be positive")
	}
	if cfg.SpikeThreshold <= 1 {
		return nil, errors.New("config: SPIKE_THRESHOLD must be greater than 1")
	}
	if cfg.SpikeMinCount <= 0 {
		return nil, errors.New("config: SPIKE_MIN_COUNT must be positive")
	}
	if cfg.CorrelationWindowHours <= 0 || cfg.CorrelationBucketMinutes <= 0 {
		return nil, errors.New("config: correlation window and bucket must be positive")
	}

	return &cfg, nil
}

// RateWindow parses RateLimitWindow as a time.Duration. Returns 60s if unset or invalid.
func (c *Config) RateWindow() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindow)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// SpikeCooldownDuration parses SpikeCooldown as a time.Duration. Returns 6h if unset or invalid.
func (c *Config) SpikeCooldownDuration() time.Duration {
	d, err := time.ParseDuration(c.SpikeCooldown)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// ScanInterval parses SpikeScanInterval as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) ScanInterval() time.Duration {
	d, err := time.ParseDuration(c.SpikeScanInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// AlertKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the alert pipeline is enabled (non-empty list) and to create the producer.
func (c *Config) AlertKafkaBrokersList() []string {
	if c == nil || c.AlertKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AlertKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
