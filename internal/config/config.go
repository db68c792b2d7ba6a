// Package config handles pipeline configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DB holds connection parameters for one relational destination.
type DB struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// Config holds all pipeline configuration. It is built once at startup
// and passed explicitly into every stage; stages never read the
// environment themselves.
type Config struct {
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Warehouse is the source-side database: raw transactions in,
	// engineered features out.
	Warehouse DB
	// Mart is the destination database for fraud predictions.
	Mart DB

	// File locations.
	DataDir       string // source CSV and delimited outputs
	ModelDir      string // trained model artifact + evaluation metrics
	SourceCSVName string

	// Ops surface. Empty OpsAddr disables the HTTP server.
	OpsAddr      string
	OTLPEndpoint string
}

// Defaults for local development.
const (
	DefaultEnv       = "development"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultDataDir   = "data"
	DefaultModelDir  = "models"
	DefaultSourceCSV = "bank_transactions.csv"
	DefaultSSLMode   = "disable"
)

// Load reads configuration from environment variables.
// It loads .env if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:       getEnv("ENV", DefaultEnv),
		LogLevel:  getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat: getEnv("LOG_FORMAT", DefaultLogFormat),
		Warehouse: loadDB("WAREHOUSE", 5432),
		Mart:      loadDB("MART", 5432),
		DataDir:   getEnv("DATA_DIR", DefaultDataDir),
		ModelDir:  getEnv("MODEL_DIR", DefaultModelDir),

		SourceCSVName: getEnv("SOURCE_CSV", DefaultSourceCSV),
		OpsAddr:       os.Getenv("OPS_ADDR"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDB(prefix string, defaultPort int) DB {
	return DB{
		Host:     getEnv(prefix+"_HOST", "localhost"),
		Port:     int(getEnvInt64(prefix+"_PORT", int64(defaultPort))),
		User:     os.Getenv(prefix + "_USER"),
		Password: os.Getenv(prefix + "_PASSWORD"),
		Name:     os.Getenv(prefix + "_DATABASE"),
		SSLMode:  getEnv(prefix+"_SSLMODE", DefaultSSLMode),
	}
}

// Validate checks that all required configuration is present. Missing
// database parameters are a hard error so no stage ever runs against a
// half-configured destination.
func (c *Config) Validate() error {
	if err := c.Warehouse.validate("WAREHOUSE", c.IsDevelopment()); err != nil {
		return err
	}
	if err := c.Mart.validate("MART", c.IsDevelopment()); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	if c.ModelDir == "" {
		return fmt.Errorf("MODEL_DIR must not be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", c.LogFormat)
	}
	return nil
}

func (d DB) validate(prefix string, dev bool) error {
	if d.Host == "" {
		return fmt.Errorf("%s_HOST is required", prefix)
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("%s_PORT must be a valid port, got %d", prefix, d.Port)
	}
	if d.User == "" {
		return fmt.Errorf("%s_USER is required", prefix)
	}
	if d.Name == "" {
		return fmt.Errorf("%s_DATABASE is required", prefix)
	}
	// Passwordless connections are tolerated in development only.
	if d.Password == "" && !dev {
		return fmt.Errorf("%s_PASSWORD is required", prefix)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
