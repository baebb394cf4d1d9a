package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// History drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Env string `yaml:"env" validate:"omitempty,oneof=production development"`
	} `yaml:"log"`
	Quiz struct {
		BankID           string `yaml:"bank_id"`
		BankFile         string `yaml:"bank_file"`
		TTL              string `yaml:"ttl"`
		QuestionsPerQuiz int    `yaml:"questions_per_quiz" validate:"gte=0"`
		Duration         string `yaml:"duration"`
		WarningThreshold string `yaml:"warning_threshold"`
		WarningDisplay   string `yaml:"warning_display"`
	} `yaml:"quiz"`
	History struct {
		Driver      string `yaml:"driver" validate:"omitempty,oneof=memory sqlite mysql redis postgres"`
		Key         string `yaml:"key"`
		MaxAttempts int    `yaml:"max_attempts" validate:"gte=0"`
		SQLitePath  string `yaml:"sqlite_path"`
		MySQLDSN    string `yaml:"mysql_dsn"`
	} `yaml:"history"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		TTL      string `yaml:"ttl"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Explainer struct {
		APIKey  string `yaml:"api_key"`
		URL     string `yaml:"url"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"explainer"`
}

// Load reads YAML config from path. A missing file yields the defaults;
// environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := firstEnv("EXPLAINER_API_KEY", "API_KEY"); v != "" {
		c.Explainer.APIKey = v
	}
	if v := os.Getenv("HISTORY_DRIVER"); v != "" {
		c.History.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Log.Env = v
	}
}

func (c *Config) applyDefaults() {
	if c.History.Driver == "" {
		c.History.Driver = DriverSQLite
	}
	if c.History.SQLitePath == "" {
		c.History.SQLitePath = "science-quiz.db"
	}
	if c.Quiz.BankID == "" {
		c.Quiz.BankID = "default"
	}
	if c.Log.Env == "" {
		c.Log.Env = "development"
	}
}

var validate = validator.New()

// Validate checks field constraints and that the chosen history driver has its connection settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.History.Driver {
	case DriverMySQL:
		if c.History.MySQLDSN == "" {
			return errors.New("invalid config: history.mysql_dsn required for mysql driver")
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return errors.New("invalid config: redis.addr required for redis driver")
		}
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return errors.New("invalid config: postgres.url required for postgres driver")
		}
	}
	for name, raw := range map[string]string{
		"quiz.ttl":               c.Quiz.TTL,
		"quiz.duration":          c.Quiz.Duration,
		"quiz.warning_threshold": c.Quiz.WarningThreshold,
		"quiz.warning_display":   c.Quiz.WarningDisplay,
		"redis.ttl":              c.Redis.TTL,
		"explainer.timeout":      c.Explainer.Timeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", name, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
