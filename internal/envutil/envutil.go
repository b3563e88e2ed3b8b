package envutil

import (
	"os"
	"strings"
)

// Lookup returns the deployment environment name, preferring APP_ENV and
// falling back to NODE_ENV so existing .env files keep working.
// It is only consulted while loading configuration.
func Lookup() string {
	for _, key := range []string{"APP_ENV", "NODE_ENV"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// IsDev reports whether env names a development deployment,
// where cookies are allowed over plain HTTP.
func IsDev(env string) bool {
	switch strings.ToLower(env) {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}
