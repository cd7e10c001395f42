// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the service configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults, environment variables,
// or must be provided via CLI flags.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty"`         // HTTP listen port
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Provider credentials
	GeminiAPIKey     string `json:"gemini_api_key,omitempty"`     // LLM provider key
	PerplexityAPIKey string `json:"perplexity_api_key,omitempty"` // Web search provider key
	FalAPIKey        string `json:"fal_api_key,omitempty"`        // Image generation provider key
	BlobToken        string `json:"blob_token,omitempty"`         // Asset store token
	DeployToken      string `json:"deploy_token,omitempty"`       // Hosting platform token
	DeployProject    string `json:"deploy_project,omitempty"`     // Hosting project name

	// Payment gate
	PaymentEnabled bool   `json:"payment_enabled,omitempty"` // Require payment before a run
	FacilitatorURL string `json:"facilitator_url,omitempty"` // Payment facilitator base URL
	PaymentAmount  string `json:"payment_amount,omitempty"`  // Atomic amount per run
	PaymentNetwork string `json:"payment_network,omitempty"` // Settlement network identifier
	PaymentPayTo   string `json:"payment_pay_to,omitempty"`  // Receiving address

	// Behavior
	UseBrowser        bool   `json:"use_browser,omitempty"`         // Headless browser fallback for SPA sites
	Verbose           bool   `json:"verbose,omitempty"`             // Print detailed step progress
	CacheRetention    string `json:"cache_retention,omitempty"`     // Idle-run cache retention (duration string)
	StatusGracePeriod string `json:"status_grace_period,omitempty"` // How long an unknown run still reads as running
	ScreenshotTimeout string `json:"screenshot_timeout,omitempty"`  // Headless render budget for screenshots
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are handled by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	for _, field := range []struct {
		name, value string
	}{
		{"cache_retention", c.CacheRetention},
		{"status_grace_period", c.StatusGracePeriod},
		{"screenshot_timeout", c.ScreenshotTimeout},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("config error: '%s' is not a valid duration: %v", field.name, err)
		}
	}

	if c.PaymentEnabled {
		if c.FacilitatorURL == "" {
			return fmt.Errorf("config error: 'facilitator_url' is required when payment is enabled")
		}
		if c.PaymentPayTo == "" {
			return fmt.Errorf("config error: 'payment_pay_to' is required when payment is enabled")
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.PerplexityAPIKey == "" {
		result.PerplexityAPIKey = defaults.PerplexityAPIKey
	}
	if result.FalAPIKey == "" {
		result.FalAPIKey = defaults.FalAPIKey
	}
	if result.BlobToken == "" {
		result.BlobToken = defaults.BlobToken
	}
	if result.DeployToken == "" {
		result.DeployToken = defaults.DeployToken
	}
	if result.DeployProject == "" {
		result.DeployProject = defaults.DeployProject
	}
	if result.FacilitatorURL == "" {
		result.FacilitatorURL = defaults.FacilitatorURL
	}
	if result.PaymentAmount == "" {
		result.PaymentAmount = defaults.PaymentAmount
	}
	if result.PaymentNetwork == "" {
		result.PaymentNetwork = defaults.PaymentNetwork
	}
	if result.PaymentPayTo == "" {
		result.PaymentPayTo = defaults.PaymentPayTo
	}
	if result.CacheRetention == "" {
		result.CacheRetention = defaults.CacheRetention
	}
	if result.StatusGracePeriod == "" {
		result.StatusGracePeriod = defaults.StatusGracePeriod
	}
	if result.ScreenshotTimeout == "" {
		result.ScreenshotTimeout = defaults.ScreenshotTimeout
	}

	// Booleans: true in either wins, so a config file can enable behavior
	// that flags leave off.
	result.PaymentEnabled = result.PaymentEnabled || defaults.PaymentEnabled
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.Verbose = result.Verbose || defaults.Verbose

	return result
}

// FromEnv fills provider credentials and connection settings from
// environment variables for any field not already set.
func (c *Config) FromEnv() {
	fill := func(target *string, key string) {
		if *target == "" {
			*target = os.Getenv(key)
		}
	}
	fill(&c.DatabaseURL, "DATABASE_URL")
	fill(&c.GeminiAPIKey, "GEMINI_API_KEY")
	fill(&c.PerplexityAPIKey, "PERPLEXITY_API_KEY")
	fill(&c.FalAPIKey, "FAL_API_KEY")
	fill(&c.BlobToken, "BLOB_READ_WRITE_TOKEN")
	fill(&c.DeployToken, "VERCEL_TOKEN")
	fill(&c.DeployProject, "VERCEL_PROJECT")
	fill(&c.FacilitatorURL, "FACILITATOR_URL")
	fill(&c.PaymentPayTo, "RECEIVING_WALLET_ADDRESS")

	if !c.PaymentEnabled && os.Getenv("PAYMENT_ENABLED") == "true" {
		c.PaymentEnabled = true
	}
}

// Duration parses a duration field, returning fallback when unset or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
