// Package config loads the service configuration from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gartstein/cvtracker/internal/cv/db"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when CONFIG_PATH is not set.
const DefaultPath = "internal/cv/config/config.yaml"

// Config is the root application configuration.
type Config struct {
	HTTP  HTTPConfig  `yaml:"http"`
	DB    DBConfig    `yaml:"db"`
	Kafka KafkaConfig `yaml:"kafka"`
	CV    CVConfig    `yaml:"cv"`
	Log   LogConfig   `yaml:"log"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int           `yaml:"port"             env:"HTTP_PORT"             env-default:"3001"`
	BasePath        string        `yaml:"base_path"        env:"HTTP_BASE_PATH"        env-default:"/api"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
	CORSOrigins     []string      `yaml:"cors_origins"     env:"HTTP_CORS_ORIGINS"     env-default:"*" env-separator:","`
}

// DBConfig holds store connection settings.
type DBConfig struct {
	Driver         string        `yaml:"driver"          env:"DB_DRIVER"          env-default:"postgres"`
	Host           string        `yaml:"host"            env:"DB_HOST"            env-default:"localhost"`
	Port           int           `yaml:"port"            env:"DB_PORT"            env-default:"5432"`
	User           string        `yaml:"user"            env:"DB_USER"            env-default:"postgres"`
	Password       string        `yaml:"password"        env:"DB_PASSWORD"`
	Name           string        `yaml:"name"            env:"DB_NAME"            env-default:"cvtracker"`
	SSLMode        string        `yaml:"sslmode"         env:"DB_SSLMODE"         env-default:"disable"`
	DSN            string        `yaml:"dsn"             env:"DB_DSN"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DB_CONNECT_TIMEOUT" env-default:"30s"`
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" env:"KAFKA_ENABLED" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic"   env:"KAFKA_TOPIC"   env-default:"cv-events"`
}

// CVConfig holds business rules.
type CVConfig struct {
	CooldownDays int `yaml:"cooldown_days" env:"CV_COOLDOWN_DAYS" env-default:"60"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `yaml:"level"       env:"LOG_LEVEL"       env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults. The file is CONFIG_PATH, or DefaultPath;
// when neither exists and CONFIG_PATH was not set, ENV and defaults are used.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = DefaultPath
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks the loaded values. Load calls it.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case db.DriverPostgres:
	case db.DriverSQLite:
		if c.DB.DSN == "" {
			return errors.New("db.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("db.driver must be %q or %q (got %q)", db.DriverPostgres, db.DriverSQLite, c.DB.Driver)
	}
	if c.HTTP.Port <= 0 {
		return fmt.Errorf("http.port must be > 0 (got %d)", c.HTTP.Port)
	}
	if c.CV.CooldownDays <= 0 {
		return fmt.Errorf("cv.cooldown_days must be > 0 (got %d)", c.CV.CooldownDays)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

// Store converts the db section into the store configuration.
func (c *Config) Store() *db.Config {
	return &db.Config{
		Driver:         c.DB.Driver,
		Host:           c.DB.Host,
		Port:           c.DB.Port,
		User:           c.DB.User,
		Password:       c.DB.Password,
		DBName:         c.DB.Name,
		SSLMode:        c.DB.SSLMode,
		DSN:            c.DB.DSN,
		ConnectTimeout: c.DB.ConnectTimeout,
	}
}
