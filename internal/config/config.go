// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LookupFunc resolves an environment variable. Tests inject their own.
type LookupFunc func(string) (string, bool)

// Config holds everything read at process start. There is no hot-reload.
type Config struct {
	Addr           string
	DB             DBConfig
	LLM            LLMConfig
	QueryTimeout   time.Duration
	LLMTimeout     time.Duration
	IngestTimeout  time.Duration
	LogDevelopment bool
}

// DBConfig describes the database connection.
type DBConfig struct {
	Driver   string // "postgres" or "mysql"
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN renders the driver-specific connection string.
func (d DBConfig) DSN() string {
	if d.Driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// LLMConfig describes the completion provider.
type LLMConfig struct {
	Provider string // "openai" or "anthropic"
	APIKey   string
	Model    string
	BaseURL  string
}

// LoadFromEnv reads configuration from the process environment.
func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// Load reads configuration through lookup. A missing LLM credential or an
// unknown driver is a fatal configuration error: the caller must not start.
func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	driver := strings.ToLower(get("DB_DRIVER", "mysql"))
	if driver != "postgres" && driver != "mysql" {
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, mysql)", driver)
	}

	defaultPort := "3306"
	defaultUser := "root"
	if driver == "postgres" {
		defaultPort = "5432"
		defaultUser = "postgres"
	}

	cfg := Config{
		Addr: get("ADDR", ":8080"),
		DB: DBConfig{
			Driver:   driver,
			Host:     get("DB_HOST", "localhost"),
			Port:     get("DB_PORT", defaultPort),
			User:     get("DB_USER", defaultUser),
			Password: get("DB_PASSWORD", ""),
			Name:     get("DB_NAME", "chatdb"),
		},
		LLM: LLMConfig{
			Provider: strings.ToLower(get("LLM_PROVIDER", "openai")),
			APIKey:   get("LLM_API_KEY", ""),
			Model:    get("LLM_MODEL", ""),
			BaseURL:  get("LLM_BASE_URL", ""),
		},
		QueryTimeout:   duration(get("QUERY_TIMEOUT", ""), 8*time.Second),
		LLMTimeout:     duration(get("LLM_TIMEOUT", ""), 60*time.Second),
		IngestTimeout:  duration(get("INGEST_TIMEOUT", ""), 60*time.Second),
		LogDevelopment: boolean(get("LOG_DEV", "")),
	}

	if cfg.LLM.APIKey == "" {
		return Config{}, fmt.Errorf("LLM_API_KEY is required")
	}

	return cfg, nil
}

func duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func boolean(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
