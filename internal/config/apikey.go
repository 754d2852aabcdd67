package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables consulted for the personal access token.
const (
	// EnvAzureDevOpsPAT is the variable the Azure DevOps CLI extension uses.
	EnvAzureDevOpsPAT = "AZURE_DEVOPS_EXT_PAT"
	// EnvPAT is the witdl-specific override.
	EnvPAT = "WITDL_PAT"
)

// ResolveTokenSource returns a personal access token and its source by
// checking multiple sources in priority order.
//
// Priority (highest to lowest):
//  1. Provided token parameter (e.g., from --pat flag)
//  2. Explicit token file (--token-file)
//  3. Default token file (~/.config/witdl/token)
//  4. AZURE_DEVOPS_EXT_PAT environment variable
//  5. WITDL_PAT environment variable
//
// The source is "flag", "token-file", "default-token-file", "environment",
// or "" if no token was found. An explicit token file that cannot be read
// is an error rather than a reason to try the next source.
func ResolveTokenSource(token, tokenFile string) (string, string, error) {
	if token != "" {
		return token, "flag", nil
	}

	if tokenFile != "" {
		key, err := ReadTokenFile(tokenFile)
		if err != nil {
			return "", "", fmt.Errorf("--token-file %s: %w", tokenFile, err)
		}
		return key, "token-file", nil
	}

	if tokenPath := GetDefaultTokenPath(); tokenPath != "" {
		if key, err := ReadTokenFile(tokenPath); err == nil {
			return key, "default-token-file", nil
		}
	}

	for _, name := range []string{EnvAzureDevOpsPAT, EnvPAT} {
		if envKey := strings.TrimSpace(os.Getenv(name)); envKey != "" {
			return envKey, "environment", nil
		}
	}

	return "", "", nil
}

// ReadTokenFile reads a token from a file.
// The file should contain only the token (whitespace is trimmed).
// Warns if file permissions are too open (not 0600 on Unix systems).
func ReadTokenFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat token file: %w", err)
	}

	if mode := info.Mode().Perm(); mode&0077 != 0 {
		fmt.Fprintf(os.Stderr, "Warning: Token file %s has insecure permissions %04o. Consider using 'chmod 600 %s'\n", path, mode, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file is empty")
	}
	return token, nil
}

// WriteTokenFile writes a token to a file with secure permissions (0600).
func WriteTokenFile(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("cannot write empty token")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}
