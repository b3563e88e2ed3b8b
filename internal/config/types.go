package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/mattppal/external-notifier/internal/envutil"
	"github.com/mattppal/external-notifier/internal/urlutil"
)

// Slack endpoints and defaults used when the config leaves them empty.
const (
	DefaultAddr        = ":3000"
	DefaultEnv         = "production"
	DefaultAuthURL     = "https://slack.com/oauth/v2/authorize"
	DefaultTokenURL    = "https://slack.com/api/oauth.v2.access"
	DefaultAPIBaseURL  = "https://slack.com/api"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultSessionTTL  = 7 * 24 * time.Hour

	// CallbackPath is where Slack sends the user back after consent.
	CallbackPath = "/api/auth/callback"
)

// DefaultScopes are the bot scopes needed to list channels and post to them.
var DefaultScopes = []string{"channels:read", "chat:write"}

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// GoString keeps %#v from leaking the value
func (s Secret) GoString() string {
	return s.String()
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// SlackConfig holds the Slack app credentials and endpoints.
type SlackConfig struct {
	ClientID     string
	ClientSecret Secret
	Scopes       []string

	// Endpoint overrides, mostly for tests and Slack Enterprise Grid proxies.
	AuthURL    string
	TokenURL   string
	APIBaseURL string

	// HTTPTimeout bounds each outbound call to Slack.
	HTTPTimeout time.Duration
}

// SessionConfig controls the session cookie and the OAuth state signer.
type SessionConfig struct {
	MaxAge time.Duration

	// StateSecret signs OAuth state parameters. When empty a key is derived
	// from the Slack client secret.
	StateSecret Secret
}

// LogConfig selects log level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// Config is the fully resolved, immutable application configuration.
// It is built once at startup and handed to constructors by value.
type Config struct {
	Addr           string
	BaseURL        string
	Env            string
	AllowedOrigins []string
	Metrics        bool

	Slack   SlackConfig
	Session SessionConfig
	Log     LogConfig
}

// IsDev reports whether the deployment relaxes transport security.
func (c Config) IsDev() bool {
	return envutil.IsDev(c.Env)
}

// RedirectURI is the OAuth redirect URI derived from the base URL. The same
// value is used for the authorize redirect and the token exchange.
func (c Config) RedirectURI() string {
	return urlutil.MustJoinPath(c.BaseURL, CallbackPath)
}

// HomeURL is the application root on the base URL's origin, where a
// successful login lands.
func (c Config) HomeURL() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "/"
	}
	u.Path = "/"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// applyDefaults fills unset optional fields.
func applyDefaults(c *Config) {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Env == "" {
		c.Env = envutil.Lookup()
	}
	if c.Env == "" {
		c.Env = DefaultEnv
	}
	if len(c.Slack.Scopes) == 0 {
		c.Slack.Scopes = append([]string(nil), DefaultScopes...)
	}
	if c.Slack.AuthURL == "" {
		c.Slack.AuthURL = DefaultAuthURL
	}
	if c.Slack.TokenURL == "" {
		c.Slack.TokenURL = DefaultTokenURL
	}
	if c.Slack.APIBaseURL == "" {
		c.Slack.APIBaseURL = DefaultAPIBaseURL
	}
	if c.Slack.HTTPTimeout == 0 {
		c.Slack.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = DefaultSessionTTL
	}
}

// parseConfigValue parses a JSON value that is either a plain string or an
// environment reference of the form {"$env": "VAR_NAME"}.
func parseConfigValue(raw json.RawMessage) (string, bool, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, false, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", false, fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", false, fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	if value == "" {
		return "", true, fmt.Errorf("environment variable %s not set", envVar)
	}
	// Strip surrounding quotes if present (only matching pairs)
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return value, true, nil
}
