package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON implements custom unmarshaling for Config, resolving
// environment references and durations.
func (c *Config) UnmarshalJSON(data []byte) error {
	type rawConfig struct {
		Addr           json.RawMessage `json:"addr"`
		BaseURL        json.RawMessage `json:"baseURL"`
		Env            string          `json:"env"`
		AllowedOrigins []string        `json:"allowedOrigins"`
		Metrics        *bool           `json:"metrics"`
		Slack          SlackConfig     `json:"slack"`
		Session        SessionConfig   `json:"session"`
		Log            struct {
			Level  string `json:"level"`
			Format string `json:"format"`
		} `json:"log"`
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Addr != nil {
		addr, _, err := parseConfigValue(raw.Addr)
		if err != nil {
			return fmt.Errorf("parsing addr: %w", err)
		}
		c.Addr = addr
	}
	if raw.BaseURL != nil {
		baseURL, _, err := parseConfigValue(raw.BaseURL)
		if err != nil {
			return fmt.Errorf("parsing baseURL: %w", err)
		}
		c.BaseURL = baseURL
	}

	c.Env = raw.Env
	c.AllowedOrigins = raw.AllowedOrigins
	c.Metrics = true
	if raw.Metrics != nil {
		c.Metrics = *raw.Metrics
	}
	c.Slack = raw.Slack
	c.Session = raw.Session
	c.Log = LogConfig{Level: raw.Log.Level, Format: raw.Log.Format}
	return nil
}

// UnmarshalJSON implements custom unmarshaling for SlackConfig
func (s *SlackConfig) UnmarshalJSON(data []byte) error {
	type rawSlack struct {
		ClientID     json.RawMessage `json:"clientId"`
		ClientSecret json.RawMessage `json:"clientSecret"`
		Scopes       []string        `json:"scopes"`
		AuthURL      string          `json:"authUrl"`
		TokenURL     string          `json:"tokenUrl"`
		APIBaseURL   string          `json:"apiBaseUrl"`
		Timeout      string          `json:"timeout"`
	}

	var raw rawSlack
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Scopes = raw.Scopes
	s.AuthURL = raw.AuthURL
	s.TokenURL = raw.TokenURL
	s.APIBaseURL = raw.APIBaseURL

	if raw.Timeout != "" {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("parsing slack.timeout: %w", err)
		}
		s.HTTPTimeout = timeout
	}

	if raw.ClientID != nil {
		clientID, _, err := parseConfigValue(raw.ClientID)
		if err != nil {
			return fmt.Errorf("parsing slack.clientId: %w", err)
		}
		s.ClientID = clientID
	}

	if raw.ClientSecret != nil {
		secret, fromEnv, err := parseConfigValue(raw.ClientSecret)
		if err != nil {
			return fmt.Errorf("parsing slack.clientSecret: %w", err)
		}
		if !fromEnv {
			return fmt.Errorf("slack.clientSecret must use environment variable reference for security")
		}
		s.ClientSecret = Secret(secret)
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for SessionConfig
func (s *SessionConfig) UnmarshalJSON(data []byte) error {
	type rawSession struct {
		MaxAge      string          `json:"maxAge"`
		StateSecret json.RawMessage `json:"stateSecret"`
	}

	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.MaxAge != "" {
		maxAge, err := time.ParseDuration(raw.MaxAge)
		if err != nil {
			return fmt.Errorf("parsing session.maxAge: %w", err)
		}
		s.MaxAge = maxAge
	}

	if raw.StateSecret != nil {
		secret, fromEnv, err := parseConfigValue(raw.StateSecret)
		if err != nil {
			return fmt.Errorf("parsing session.stateSecret: %w", err)
		}
		if !fromEnv {
			return fmt.Errorf("session.stateSecret must use environment variable reference for security")
		}
		s.StateSecret = Secret(secret)
	}

	return nil
}
