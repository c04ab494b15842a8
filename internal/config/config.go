package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Driver          string `yaml:"driver" env:"DB_DRIVER"`
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		SQLitePath      string `yaml:"sqlite_path" env:"DB_SQLITE_PATH"`
		Seed            bool   `yaml:"seed" env:"DB_SEED"`
	} `yaml:"database"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Enrollment struct {
		EnforceTimeConflicts bool `yaml:"enforce_time_conflicts" env:"ENROLLMENT_ENFORCE_TIME_CONFLICTS"`
		MaxRetries           int  `yaml:"max_retries" env:"ENROLLMENT_MAX_RETRIES"`
	} `yaml:"enrollment"`

	RateLimit struct {
		Enabled   bool   `yaml:"enabled" env:"RATELIMIT_ENABLED"`
		Rate      string `yaml:"rate" env:"RATELIMIT_RATE"`
		Store     string `yaml:"store" env:"RATELIMIT_STORE"`
		RedisAddr string `yaml:"redis_addr" env:"RATELIMIT_REDIS_ADDR"`
		RedisDB   int    `yaml:"redis_db" env:"RATELIMIT_REDIS_DB"`
	} `yaml:"ratelimit"`

	Notify struct {
		SMTPHost     string `yaml:"smtp_host" env:"NOTIFY_SMTP_HOST"`
		SMTPPort     int    `yaml:"smtp_port" env:"NOTIFY_SMTP_PORT"`
		SMTPUser     string `yaml:"smtp_user" env:"NOTIFY_SMTP_USER"`
		SMTPPassword string `yaml:"smtp_password" env:"NOTIFY_SMTP_PASSWORD"`
		From         string `yaml:"from" env:"NOTIFY_FROM"`
		StudentEmail string `yaml:"student_email_pattern" env:"NOTIFY_STUDENT_EMAIL_PATTERN"`
	} `yaml:"notify"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	// The file is optional; env vars alone are enough in containers
	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Driver = DriverPostgres
	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "enrollment"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.SQLitePath = "data/enrollment.db"
	config.Database.Seed = true

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.Issuer = "enrollment.app"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Enrollment.MaxRetries = 3

	config.RateLimit.Enabled = true
	config.RateLimit.Rate = "30-M"
	config.RateLimit.Store = "memory"

	config.Notify.SMTPPort = 587
	config.Notify.From = "enrollment@localhost"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return processStructFields(config)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	switch strings.ToLower(config.Database.Driver) {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
			return fmt.Errorf("invalid database connection lifetime: %w", err)
		}
	case DriverSQLite:
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if config.Enrollment.MaxRetries < 0 {
		return fmt.Errorf("enrollment max retries cannot be negative")
	}

	switch config.RateLimit.Store {
	case "memory":
	case "redis":
		if config.RateLimit.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis rate limit store")
		}
	default:
		return fmt.Errorf("unsupported rate limit store %q", config.RateLimit.Store)
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
