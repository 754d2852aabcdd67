package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads a .env file from the working directory into the process
// environment. Variables already set in the environment win. A missing file
// is not an error.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overlays WITDL_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("WITDL_PROXY_MODE"); v != "" {
		cfg.ProxyMode = v
	}
	if v := os.Getenv("WITDL_PROXY_HOST"); v != "" {
		cfg.ProxyHost = v
	}
	if v := os.Getenv("WITDL_PROXY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.ProxyPort = port
		}
	}
	if v := os.Getenv("WITDL_PROXY_USER"); v != "" {
		cfg.ProxyUser = v
	}
	if v := os.Getenv("WITDL_PROXY_PASSWORD"); v != "" {
		cfg.ProxyPassword = v
	}
	if v := os.Getenv("WITDL_NO_PROXY"); v != "" {
		cfg.NoProxy = v
	}
	if v := os.Getenv("WITDL_API_VERSION"); v != "" {
		cfg.APIVersion = strings.TrimSpace(v)
	}
}
