// Package config provides configuration management for witdl.
package config

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rescale/witdl/internal/constants"
)

// Config holds the settings that shape how witdl talks to the work-tracking
// service. Run parameters (server, query, output) come from flags only.
type Config struct {
	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	// APIVersion is sent as the api-version query parameter on every request.
	APIVersion string

	// MaxRetries bounds transport-level retries (5xx, 429, connection resets).
	MaxRetries int

	// RequestTimeout applies to metadata requests only; attachment streams
	// are bounded by the caller's context.
	RequestTimeout time.Duration
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		ProxyMode:      "no-proxy",
		APIVersion:     constants.DefaultAPIVersion,
		MaxRetries:     constants.DefaultMaxRetries,
		RequestTimeout: constants.DefaultRequestTimeout,
	}
}

// LoadConfigCSV loads configuration from a CSV file
// CSV format: key,value pairs
func LoadConfigCSV(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	// Return defaults if config doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read config CSV: %w", err)
	}

	for i, record := range records {
		if i == 0 && len(record) >= 2 && strings.ToLower(record[0]) == "key" {
			continue
		}
		if len(record) < 2 {
			continue
		}

		key := strings.TrimSpace(strings.ToLower(record[0]))
		value := strings.TrimSpace(record[1])

		switch key {
		case "proxy_mode":
			cfg.ProxyMode = value
		case "proxy_host":
			cfg.ProxyHost = value
		case "proxy_port":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.ProxyPort = v
			}
		case "proxy_user":
			cfg.ProxyUser = value
		case "proxy_password":
			// SECURITY: proxy passwords are entered at runtime via secure prompt
			if value != "" {
				log.Printf("[WARN] proxy_password in config file is ignored for security - use secure prompt at runtime")
			}
		case "no_proxy":
			cfg.NoProxy = value
		case "proxy_warmup":
			cfg.ProxyWarmup = parseBool(value)
		case "pat", "token":
			// SECURITY: tokens come from --pat, --token-file or the environment
			if value != "" {
				log.Printf("[WARN] %s in config file is ignored for security - use AZURE_DEVOPS_EXT_PAT env var or --token-file flag", key)
			}
		case "api_version":
			if value != "" {
				cfg.APIVersion = value
			}
		case "max_retries":
			if v, err := strconv.Atoi(value); err == nil {
				cfg.MaxRetries = v
			}
		case "request_timeout":
			if d, err := time.ParseDuration(value); err == nil {
				cfg.RequestTimeout = d
			}
		}
	}

	return cfg, nil
}

// SaveConfigCSV saves configuration to a CSV file.
// The proxy password is never written.
func SaveConfigCSV(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"key", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	proxyPort := ""
	if cfg.ProxyPort > 0 {
		proxyPort = strconv.Itoa(cfg.ProxyPort)
	}
	requestTimeout := ""
	if cfg.RequestTimeout > 0 {
		requestTimeout = cfg.RequestTimeout.String()
	}

	records := [][]string{
		{"proxy_mode", cfg.ProxyMode},
		{"proxy_host", cfg.ProxyHost},
		{"proxy_port", proxyPort},
		{"proxy_user", cfg.ProxyUser},
		{"no_proxy", cfg.NoProxy},
		{"proxy_warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		{"api_version", cfg.APIVersion},
		{"max_retries", strconv.Itoa(cfg.MaxRetries)},
		{"request_timeout", requestTimeout},
	}

	for _, record := range records {
		// Only write non-empty values to keep file clean
		if record[1] != "" {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	switch strings.ToLower(c.ProxyMode) {
	case "", "no-proxy", "system", "basic", "ntlm":
	default:
		return fmt.Errorf("unsupported proxy mode: %s", c.ProxyMode)
	}
	if c.APIVersion == "" {
		return fmt.Errorf("api_version cannot be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}
	return nil
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

// ConfigDir is the standard configuration directory name
const ConfigDir = "witdl"

// getConfigDir returns the platform-appropriate config directory.
// - Windows: %APPDATA%\witdl
// - Unix: ~/.config/witdl (XDG standard)
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, ConfigDir)
		}
		if userProfile := os.Getenv("USERPROFILE"); userProfile != "" {
			return filepath.Join(userProfile, "AppData", "Roaming", ConfigDir)
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return "config.csv"
	}
	return filepath.Join(configDir, "config.csv")
}

// GetDefaultTokenPath returns the default token file path, or "" when the
// config directory cannot be determined.
func GetDefaultTokenPath() string {
	configDir := getConfigDir()
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "token")
}
