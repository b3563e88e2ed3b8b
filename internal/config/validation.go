package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattppal/external-notifier/internal/log"
)

// ValidationResult holds validation errors and warnings
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// ValidationError represents a validation issue
type ValidationError struct {
	Path    string
	Message string
}

// IsValid returns true if there are no errors
func (v *ValidationResult) IsValid() bool {
	return len(v.Errors) == 0
}

func (v *ValidationResult) addError(path, message string) {
	v.Errors = append(v.Errors, ValidationError{Path: path, Message: message})
}

func (v *ValidationResult) addWarning(path, message string) {
	v.Warnings = append(v.Warnings, ValidationError{Path: path, Message: message})
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("baseURL is required")
	}
	if err := validateBaseURL(config.BaseURL); err != nil {
		return fmt.Errorf("baseURL: %w", err)
	}
	if config.Addr == "" {
		return fmt.Errorf("addr is required")
	}

	if config.Slack.ClientID == "" {
		return fmt.Errorf("slack.clientId is required")
	}
	if config.Slack.ClientSecret == "" {
		return fmt.Errorf("slack.clientSecret is required")
	}
	for _, scope := range config.Slack.Scopes {
		if strings.ContainsAny(scope, ", ") {
			return fmt.Errorf("slack.scopes entries must be single scopes, got %q", scope)
		}
	}
	for name, endpoint := range map[string]string{
		"slack.authUrl":    config.Slack.AuthURL,
		"slack.tokenUrl":   config.Slack.TokenURL,
		"slack.apiBaseUrl": config.Slack.APIBaseURL,
	} {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("%s is not a valid URL: %w", name, err)
		}
	}
	if config.Slack.HTTPTimeout < 0 {
		return fmt.Errorf("slack.timeout cannot be negative")
	}

	if config.Session.MaxAge <= 0 {
		return fmt.Errorf("session.maxAge must be positive")
	}
	if config.Session.MaxAge < time.Minute {
		log.LogWarn("Session maxAge %s is very short; users will have to log in again often", config.Session.MaxAge)
	}
	if secret := config.Session.StateSecret; secret != "" && len(secret) < 32 {
		return fmt.Errorf("session.stateSecret must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(secret))
	}

	if !config.IsDev() && strings.HasPrefix(config.BaseURL, "http://") {
		log.LogWarn("baseURL uses plain HTTP outside development; the session cookie is Secure and will not be sent")
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("must not contain a query or fragment")
	}
	return nil
}

// ValidateFile validates a config file structure without requiring env vars
func ValidateFile(path string) (*ValidationResult, error) {
	result := &ValidationResult{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		result.addError("", fmt.Sprintf("invalid JSON: %v", err))
		return result, nil
	}

	checkBashStyleSyntax(rawConfig, "", result)

	version, ok := rawConfig["version"].(string)
	if !ok {
		result.addError("version", fmt.Sprintf("version field is required. Hint: Add \"version\": %q", SupportedVersionPrefix))
	} else if !strings.HasPrefix(version, SupportedVersionPrefix) {
		result.addError("version", fmt.Sprintf("unsupported version '%s' - use '%s'", version, SupportedVersionPrefix))
	}

	if baseURL, ok := rawConfig["baseURL"].(string); ok {
		if err := validateBaseURL(baseURL); err != nil {
			result.addError("baseURL", err.Error())
		}
	} else if _, isRef := rawConfig["baseURL"].(map[string]any); !isRef {
		result.addError("baseURL", "baseURL is required. Example: \"https://notifier.example.com\"")
	}

	validateSlackStructure(rawConfig, result)
	validateSessionStructure(rawConfig, result)

	if origins, ok := rawConfig["allowedOrigins"].([]any); ok {
		for i, origin := range origins {
			s, ok := origin.(string)
			if !ok || s == "" {
				result.addError(fmt.Sprintf("allowedOrigins[%d]", i), "origin must be a non-empty string")
				continue
			}
			if s == "*" {
				result.addWarning(fmt.Sprintf("allowedOrigins[%d]", i), "wildcard origin disables credentialed CORS requests")
			}
		}
	}

	return result, nil
}

func validateSlackStructure(rawConfig map[string]any, result *ValidationResult) {
	slack, ok := rawConfig["slack"].(map[string]any)
	if !ok {
		result.addError("slack", "slack field is required and must be an object")
		return
	}

	if _, ok := slack["clientId"]; !ok {
		result.addError("slack.clientId", "clientId is required. Find it under Basic Information in your Slack app settings")
	}

	switch secret := slack["clientSecret"].(type) {
	case nil:
		result.addError("slack.clientSecret", "clientSecret is required. Hint: {\"$env\": \"SLACK_CLIENT_SECRET\"}")
	case string:
		result.addError("slack.clientSecret", "clientSecret must use environment variable reference for security")
	case map[string]any:
		if _, hasEnv := secret["$env"]; !hasEnv {
			result.addError("slack.clientSecret", "clientSecret must use {\"$env\": \"VAR_NAME\"} format")
		}
	}

	if scopes, ok := slack["scopes"].([]any); ok {
		if len(scopes) == 0 {
			result.addWarning("slack.scopes", "empty scopes list; the default scopes will be requested")
		}
		for i, scope := range scopes {
			if s, ok := scope.(string); !ok || strings.ContainsAny(s, ", ") {
				result.addError(fmt.Sprintf("slack.scopes[%d]", i), "each scope must be a single string such as \"chat:write\"")
			}
		}
	}

	if timeout, ok := slack["timeout"].(string); ok {
		if _, err := time.ParseDuration(timeout); err != nil {
			result.addError("slack.timeout", fmt.Sprintf("invalid duration: %v", err))
		}
	}
}

func validateSessionStructure(rawConfig map[string]any, result *ValidationResult) {
	session, ok := rawConfig["session"].(map[string]any)
	if !ok {
		return
	}

	if maxAge, ok := session["maxAge"].(string); ok {
		d, err := time.ParseDuration(maxAge)
		if err != nil {
			result.addError("session.maxAge", fmt.Sprintf("invalid duration: %v", err))
		} else if d <= 0 {
			result.addError("session.maxAge", "maxAge must be positive")
		}
	}

	if _, isString := session["stateSecret"].(string); isString {
		result.addError("session.stateSecret", "stateSecret must use environment variable reference for security")
	}
}

var bashStyleRef = regexp.MustCompile(`\$\{?[A-Z_][A-Z0-9_]*\}?`)

// checkBashStyleSyntax flags "$VAR" strings, which are never expanded.
func checkBashStyleSyntax(value any, path string, result *ValidationResult) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			childPath := key
			if path != "" {
				childPath = path + "." + key
			}
			checkBashStyleSyntax(child, childPath, result)
		}
	case []any:
		for i, child := range v {
			checkBashStyleSyntax(child, fmt.Sprintf("%s[%d]", path, i), result)
		}
	case string:
		if bashStyleRef.MatchString(v) {
			result.addError(path, fmt.Sprintf("found bash-style variable %q. Use {\"$env\": \"VAR_NAME\"} instead", v))
		}
	}
}
