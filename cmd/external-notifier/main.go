package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mattppal/external-notifier/internal"
	"github.com/mattppal/external-notifier/internal/config"
	"github.com/mattppal/external-notifier/internal/log"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version":        config.SupportedVersionPrefix,
		"addr":           config.DefaultAddr,
		"baseURL":        "https://notifier.yourcompany.com",
		"env":            "production",
		"allowedOrigins": []string{},
		"metrics":        true,
		"slack": map[string]any{
			"clientId":     map[string]string{"$env": "SLACK_CLIENT_ID"},
			"clientSecret": map[string]string{"$env": "SLACK_CLIENT_SECRET"},
			"scopes":       config.DefaultScopes,
			"timeout":      config.DefaultHTTPTimeout.String(),
		},
		"session": map[string]any{
			"maxAge": config.DefaultSessionTTL.String(),
		},
		"log": map[string]any{
			"level":  "info",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Printf("Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, err := range result.Errors {
			if err.Path != "" {
				fmt.Printf("  - %s: %s\n", err.Path, err.Message)
			} else {
				fmt.Printf("  - %s\n", err.Message)
			}
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		for _, warn := range result.Warnings {
			if warn.Path != "" {
				fmt.Printf("  - %s: %s\n", warn.Path, warn.Message)
			} else {
				fmt.Printf("  - %s\n", warn.Message)
			}
		}
	}

	fmt.Println()
	switch {
	case len(result.Errors) == 0 && len(result.Warnings) == 0:
		fmt.Println("Result: PASS")
	case len(result.Errors) == 0:
		fmt.Println("Result: FAIL (warnings present)")
	default:
		fmt.Println("Result: FAIL")
	}

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

// loadConfig reads the config file when one is given, otherwise the
// environment (after an optional .env file).
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadEnv(".env")
}

func main() {
	conf := flag.String("config", "", "path to config file (default: read configuration from the environment and .env)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if *validate {
		if *conf == "" {
			fmt.Fprintf(os.Stderr, "Error: -config flag is required for validation\n")
			os.Exit(1)
		}
		if err := validateConfig(*conf); err != nil {
			os.Exit(1)
		}
		return
	}

	cfg, err := loadConfig(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.LogError("Invalid log settings: %v", err)
		os.Exit(1)
	}

	source := *conf
	if source == "" {
		source = "environment"
	}
	log.LogInfoWithFields("main", "Starting external-notifier", map[string]any{
		"version": BuildVersion,
		"config":  source,
	})

	notifier, err := internal.NewNotifier(cfg)
	if err != nil {
		log.LogError("Failed to create notifier: %v", err)
		os.Exit(1)
	}

	if err := notifier.Run(); err != nil {
		log.LogError("Server stopped with error: %v", err)
		os.Exit(1)
	}
}
