package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type StorageBackend string

const (
	StorageFile     StorageBackend = "file"
	StorageMemory   StorageBackend = "memory"
	StorageDynamoDB StorageBackend = "dynamodb"
	StorageRedis    StorageBackend = "redis"
)

type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeAPIKey AuthMode = "api_key"
)

// Config is resolved from, in increasing precedence: defaults, the YAML file
// named by CONSOLE_CONFIG_FILE, a .env file, and the process environment.
type Config struct {
	APIBaseURL           string         `yaml:"api_base_url"`
	APITimeout           time.Duration  `yaml:"api_timeout"`
	Port                 string         `yaml:"port"`
	LogLevel             string         `yaml:"log_level"`
	DefaultAppName       string         `yaml:"default_app_name"`
	Storage              StorageBackend `yaml:"storage_backend"`
	Namespace            string         `yaml:"namespace"`
	SessionFile          string         `yaml:"session_file"`
	SessionTable         string         `yaml:"session_table"`
	Region               string         `yaml:"aws_region"`
	RedisAddr            string         `yaml:"redis_addr"`
	RedisPassword        string         `yaml:"redis_password"`
	RedisDB              int            `yaml:"redis_db"`
	AuthMode             AuthMode       `yaml:"auth_mode"`
	ConsoleAPIKey        string         `yaml:"console_api_key"`
	SessionRedirectDelay time.Duration  `yaml:"session_redirect_delay"`
	RefreshWindow        time.Duration  `yaml:"refresh_window"`
	AppUpdateFallback    bool           `yaml:"app_update_fallback"`
}

func defaults() Config {
	return Config{
		APIBaseURL:           "http://localhost:5002",
		APITimeout:           10 * time.Second,
		Port:                 "8080",
		LogLevel:             "info",
		DefaultAppName:       "security-service-frontend",
		Storage:              StorageFile,
		Namespace:            "default",
		SessionFile:          ".rbac-console/session.json",
		AuthMode:             AuthModeNone,
		SessionRedirectDelay: 1500 * time.Millisecond,
		RefreshWindow:        2 * time.Minute,
		AppUpdateFallback:    true,
	}
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := defaults()
	if path := os.Getenv("CONSOLE_CONFIG_FILE"); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) mergeYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	setString(&c.APIBaseURL, "API_BASE_URL")
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DefaultAppName, "DEFAULT_APP_NAME")
	setString(&c.Namespace, "CONSOLE_NAMESPACE")
	setString(&c.SessionFile, "SESSION_FILE")
	setString(&c.SessionTable, "SESSION_TABLE")
	setString(&c.Region, "AWS_REGION")
	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.RedisPassword, "REDIS_PASSWORD")
	setString(&c.ConsoleAPIKey, "CONSOLE_API_KEY")
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage = StorageBackend(strings.ToLower(v))
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		c.AuthMode = AuthMode(strings.ToLower(v))
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		c.RedisDB = n
	}
	if v := os.Getenv("APP_UPDATE_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("APP_UPDATE_FALLBACK: %w", err)
		}
		c.AppUpdateFallback = b
	}
	for key, dst := range map[string]*time.Duration{
		"API_TIMEOUT":            &c.APITimeout,
		"SESSION_REDIRECT_DELAY": &c.SessionRedirectDelay,
		"REFRESH_WINDOW":         &c.RefreshWindow,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if c.APITimeout <= 0 {
		return errors.New("API_TIMEOUT must be positive")
	}
	switch c.Storage {
	case StorageFile:
		if c.SessionFile == "" {
			return errors.New("SESSION_FILE is required for file storage")
		}
	case StorageMemory:
	case StorageDynamoDB:
		if c.SessionTable == "" || c.Region == "" {
			return errors.New("SESSION_TABLE and AWS_REGION are required for dynamodb storage")
		}
	case StorageRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for redis storage")
		}
	default:
		return fmt.Errorf("invalid storage backend %q", c.Storage)
	}
	switch c.AuthMode {
	case AuthModeNone:
	case AuthModeAPIKey:
		if c.ConsoleAPIKey == "" {
			return errors.New("CONSOLE_API_KEY is required for api_key auth mode")
		}
	default:
		return errors.New("invalid auth mode")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("1500ms") or plain milliseconds ("1500").
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
