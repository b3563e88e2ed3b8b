package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// SupportedVersionPrefix is the config file version this build understands.
const SupportedVersionPrefix = "v0.0.1"

// Load loads a JSON config file, resolving {"$env": ...} references immediately.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, SupportedVersionPrefix) {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// envConfig mirrors Config for environment-only deployments. Variable names
// match the ones the Slack app setup guide asks for.
type envConfig struct {
	Addr           string   `env:"ADDR"`
	Port           string   `env:"PORT"`
	BaseURL        string   `env:"BASE_URL"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	Metrics        bool     `env:"METRICS_ENABLED" envDefault:"true"`

	SlackClientID     string        `env:"SLACK_CLIENT_ID"`
	SlackClientSecret string        `env:"SLACK_CLIENT_SECRET"`
	SlackScopes       []string      `env:"SLACK_SCOPES" envSeparator:","`
	SlackAuthURL      string        `env:"SLACK_AUTH_URL"`
	SlackTokenURL     string        `env:"SLACK_TOKEN_URL"`
	SlackAPIBaseURL   string        `env:"SLACK_API_BASE_URL"`
	SlackTimeout      time.Duration `env:"SLACK_HTTP_TIMEOUT"`

	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE"`
	StateSecret   string        `env:"STATE_SECRET"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`
}

// LoadEnv builds the configuration from environment variables. Each dotenv
// file that exists is loaded first; variables already set in the process
// environment take precedence.
func LoadEnv(dotenvFiles ...string) (Config, error) {
	for _, file := range dotenvFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	addr := raw.Addr
	if addr == "" && raw.Port != "" {
		addr = ":" + raw.Port
	}

	config := Config{
		Addr:           addr,
		BaseURL:        raw.BaseURL,
		AllowedOrigins: raw.AllowedOrigins,
		Metrics:        raw.Metrics,
		Slack: SlackConfig{
			ClientID:     raw.SlackClientID,
			ClientSecret: Secret(raw.SlackClientSecret),
			Scopes:       raw.SlackScopes,
			AuthURL:      raw.SlackAuthURL,
			TokenURL:     raw.SlackTokenURL,
			APIBaseURL:   raw.SlackAPIBaseURL,
			HTTPTimeout:  raw.SlackTimeout,
		},
		Session: SessionConfig{
			MaxAge:      raw.SessionMaxAge,
			StateSecret: Secret(raw.StateSecret),
		},
		Log: LogConfig{
			Level:  raw.LogLevel,
			Format: raw.LogFormat,
		},
	}

	applyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}
