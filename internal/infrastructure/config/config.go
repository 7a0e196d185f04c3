package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the prediction service.
type Config struct {
	HTTPPort        string
	OpsPort         string
	GRPCPort        string
	ArtifactDir     string
	DatabaseURL     string
	MigrationsDir   string
	KafkaBrokers    string
	PredictionTopic string
	OTLPEndpoint    string
	Environment     string
	LogLevel        string
	LogFormat       string
	ServiceName     string
	GRPCTLSCertFile string
	GRPCTLSKeyFile  string
	MaxBodyBytes    int64
	RateLimitRPS    int
	RecordTimeout   time.Duration
	ShutdownTimeout time.Duration
	GRPCReflection  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	maxBody, err := getEnvInt("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	shutdown, err := getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	rateLimit, err := getEnvInt("RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, err
	}
	recordMS, err := getEnvInt("RECORD_TIMEOUT_MS", 2000)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "5001"),
		OpsPort:         getEnv("OPS_PORT", "9090"),
		GRPCPort:        getEnv("GRPC_PORT", "8090"),
		ArtifactDir:     getEnv("ARTIFACT_DIR", "artifacts"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		MigrationsDir:   getEnv("MIGRATIONS_DIR", "file://migrations"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		PredictionTopic: getEnv("PREDICTION_TOPIC", "churn.predictions"),
		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		ServiceName:     getEnv("SERVICE_NAME", "churn-serve"),
		GRPCTLSCertFile: getEnv("GRPC_TLS_CERT_FILE", ""),
		GRPCTLSKeyFile:  getEnv("GRPC_TLS_KEY_FILE", ""),
		MaxBodyBytes:    int64(maxBody),
		RateLimitRPS:    rateLimit,
		RecordTimeout:   time.Duration(recordMS) * time.Millisecond,
		GRPCReflection:  getEnv("GRPC_REFLECTION", "false") == "true",
		ShutdownTimeout: time.Duration(shutdown) * time.Second,
	}
	if cfg.MaxBodyBytes <= 0 {
		return nil, fmt.Errorf("config: MAX_BODY_BYTES must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.RecordTimeout <= 0 {
		return nil, fmt.Errorf("config: RECORD_TIMEOUT_MS must be positive, got %d", recordMS)
	}
	if cfg.RateLimitRPS < 0 {
		return nil, fmt.Errorf("config: RATE_LIMIT_RPS must not be negative, got %d", cfg.RateLimitRPS)
	}
	return cfg, nil
}

// HTTPAddress returns the public prediction listen address.
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.HTTPPort)
}

// OpsAddress returns the health and metrics listen address.
func (c *Config) OpsAddress() string {
	return fmt.Sprintf(":%s", c.OpsPort)
}

// GRPCAddress returns the full gRPC listen address.
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf(":%s", c.GRPCPort)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}
