package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Config holds all configuration for the service
type Config struct {
	Port string

	Database DatabaseConfig
	Log      LogConfig
	Batch    BatchConfig

	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	// Path is only used by the sqlite driver
	Path string
}

type LogConfig struct {
	Level  string
	Format string
}

type BatchConfig struct {
	// Parallelism caps the number of workers per run; 0 means runtime.GOMAXPROCS(0)
	Parallelism int
	// ItemDelay simulates per-item work
	ItemDelay time.Duration
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Port: "8080",
		Database: DatabaseConfig{
			Driver: DriverMySQL,
			Host:   "localhost",
			Port:   "3306",
			User:   "root",
			Name:   "items",
			Path:   "items.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads an optional .env file and then overrides the defaults with
// environment variables. Variables already set in the environment win over .env.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := NewConfig()

	cfg.Port = getEnv("APP_PORT", cfg.Port)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	var err error
	if cfg.Batch.Parallelism, err = getEnvInt("BATCH_PARALLELISM", cfg.Batch.Parallelism); err != nil {
		return nil, err
	}
	if cfg.Batch.ItemDelay, err = getEnvDuration("BATCH_ITEM_DELAY", cfg.Batch.ItemDelay); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	if c.Batch.Parallelism < 0 {
		return fmt.Errorf("BATCH_PARALLELISM must be 0 or greater, got %d", c.Batch.Parallelism)
	}
	if c.Batch.ItemDelay < 0 {
		return fmt.Errorf("BATCH_ITEM_DELAY must not be negative")
	}

	return nil
}

// Address returns the listen address for the HTTP server
func (c *Config) Address() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
