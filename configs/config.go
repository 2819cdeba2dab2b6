package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds every environment-driven setting for the dispatcher.
type Config struct {
	Environment          string   `mapstructure:"ENVIRONMENT"`
	MaxRetries           int      `mapstructure:"MAX_RETRIES"`
	WorkerPoolSize       int      `mapstructure:"WORKER_POOL_SIZE"`
	BackoffBaseDelay     int      `mapstructure:"BACKOFF_BASE_DELAY_MS"`
	ResolveParallelism   int      `mapstructure:"RESOLVE_PARALLELISM"`
	BulkEmailChunkSize   int      `mapstructure:"BULK_EMAIL_CHUNK_SIZE"`
	KafkaBrokers         []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic           string   `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID         string   `mapstructure:"KAFKA_GROUP_ID"`
	KafkaDLQTopic        string   `mapstructure:"KAFKA_DLQ_TOPIC"`
	DatabaseURL          string   `mapstructure:"DATABASE_URL"`
	RedisAddr            string   `mapstructure:"REDIS_ADDR"`
	RedisPassword        string   `mapstructure:"REDIS_PASSWORD"`
	CategoryCacheTTLSec  int      `mapstructure:"CATEGORY_CACHE_TTL_SEC"`
	EmailHost            string   `mapstructure:"EMAIL_HOST"`
	EmailPort            string   `mapstructure:"EMAIL_PORT"`
	EmailUsername        string   `mapstructure:"EMAIL_USERNAME"`
	EmailPassword        string   `mapstructure:"EMAIL_PASSWORD"`
	EmailFromAddress     string   `mapstructure:"EMAIL_FROM_ADDRESS"`
	EmailFromName        string   `mapstructure:"EMAIL_FROM_NAME"`
	PushChunkSize        int      `mapstructure:"PUSH_CHUNK_SIZE"`
	DefaultCallingCode   string   `mapstructure:"DEFAULT_CALLING_CODE"`
	MetricsServerAddress string   `mapstructure:"METRICS_SERVER_ADDRESS"`
	OtelEndpoint         string   `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelInsecure         bool     `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OtelServiceName      string   `mapstructure:"OTEL_SERVICE_NAME"`
}

// EnvProduction is the environment in which SMS transmission is enabled.
const EnvProduction = "production"

// IsProduction reports whether SMS transmission should actually happen.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

var cfg *Config

// NewConfig reads the .env file (discovered relative to go.mod) plus the
// process environment and populates the global Config.
func NewConfig(path string) (*Config, error) {
	relativeURL, err := GetBasePath(path)
	if err != nil {
		return nil, fmt.Errorf("error getting base path: %v", err)
	}

	vip := viper.New()
	vip.SetConfigType("env")
	vip.SetConfigName(".env")
	vip.AddConfigPath(relativeURL)
	vip.AutomaticEnv()

	if err := vip.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	vip.BindEnv("ENVIRONMENT")
	vip.BindEnv("MAX_RETRIES")
	vip.BindEnv("WORKER_POOL_SIZE")
	vip.BindEnv("BACKOFF_BASE_DELAY_MS")
	vip.BindEnv("RESOLVE_PARALLELISM")
	vip.BindEnv("BULK_EMAIL_CHUNK_SIZE")
	vip.BindEnv("KAFKA_BROKERS")
	vip.BindEnv("KAFKA_TOPIC")
	vip.BindEnv("KAFKA_GROUP_ID")
	vip.BindEnv("KAFKA_DLQ_TOPIC")
	vip.BindEnv("DATABASE_URL")
	vip.BindEnv("REDIS_ADDR")
	vip.BindEnv("REDIS_PASSWORD")
	vip.BindEnv("CATEGORY_CACHE_TTL_SEC")
	vip.BindEnv("EMAIL_HOST")
	vip.BindEnv("EMAIL_PORT")
	vip.BindEnv("EMAIL_USERNAME")
	vip.BindEnv("EMAIL_PASSWORD")
	vip.BindEnv("EMAIL_FROM_ADDRESS")
	vip.BindEnv("EMAIL_FROM_NAME")
	vip.BindEnv("PUSH_CHUNK_SIZE")
	vip.BindEnv("DEFAULT_CALLING_CODE")
	vip.BindEnv("METRICS_SERVER_ADDRESS")
	vip.BindEnv("OTEL_EXPORTER_OTLP_ENDPOINT")
	vip.BindEnv("OTEL_EXPORTER_OTLP_INSECURE")
	vip.BindEnv("OTEL_SERVICE_NAME")

	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %v", err)
	}

	if !vip.IsSet("otel_exporter_otlp_insecure") {
		cfg.OtelInsecure = false
	}
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.BulkEmailChunkSize <= 0 {
		c.BulkEmailChunkSize = 1000
	}
	if c.PushChunkSize <= 0 {
		c.PushChunkSize = 500
	}
	if c.ResolveParallelism <= 0 {
		c.ResolveParallelism = 8
	}
	if c.DefaultCallingCode == "" {
		c.DefaultCallingCode = "+82"
	}
	if c.CategoryCacheTTLSec <= 0 {
		c.CategoryCacheTTLSec = 300
	}
}

// GetBasePath walks up from the working directory to the module root so the
// .env file is found regardless of which package a test runs from.
func GetBasePath(path string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return filepath.Join(cwd, path), nil
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			return "", errors.New("go.mod not found")
		}
		cwd = parent
	}
}

// GetConfig returns the loaded global config.
func GetConfig() *Config {
	return cfg
}

// SetTestConfig allows tests to set the global config variable directly.
func SetTestConfig(testCfg *Config) {
	if testCfg != nil {
		applyDefaults(testCfg)
	}
	cfg = testCfg
}
