package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rescale/witdl/internal/constants"
)

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(*testing.T, *Config)
	}{
		{
			name: "full config",
			content: `key,value
proxy_mode,ntlm
proxy_host,proxy.contoso.local
proxy_port,3128
proxy_user,CONTOSO\builder
no_proxy,localhost
proxy_warmup,true
api_version,6.0
max_retries,2
request_timeout,10s
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.ProxyMode != "ntlm" {
					t.Errorf("ProxyMode = %q, want ntlm", cfg.ProxyMode)
				}
				if cfg.ProxyHost != "proxy.contoso.local" || cfg.ProxyPort != 3128 {
					t.Errorf("proxy = %s:%d", cfg.ProxyHost, cfg.ProxyPort)
				}
				if cfg.ProxyUser != `CONTOSO\builder` {
					t.Errorf("ProxyUser = %q", cfg.ProxyUser)
				}
				if !cfg.ProxyWarmup {
					t.Error("ProxyWarmup should be true")
				}
				if cfg.APIVersion != "6.0" {
					t.Errorf("APIVersion = %q, want 6.0", cfg.APIVersion)
				}
				if cfg.MaxRetries != 2 {
					t.Errorf("MaxRetries = %d, want 2", cfg.MaxRetries)
				}
				if cfg.RequestTimeout != 10*time.Second {
					t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
				}
			},
		},
		{
			name:    "secrets are ignored",
			content: "proxy_password,hunter2\npat,abc123\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.ProxyPassword != "" {
					t.Errorf("ProxyPassword = %q, want empty", cfg.ProxyPassword)
				}
			},
		},
		{
			name:    "unknown keys and short rows",
			content: "colour,blue\nlonely\napi_version,\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.APIVersion != constants.DefaultAPIVersion {
					t.Errorf("APIVersion = %q, want default", cfg.APIVersion)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.csv")
			writeFile(t, path, tt.content, 0600)

			cfg, err := LoadConfigCSV(path)
			if err != nil {
				t.Fatalf("LoadConfigCSV() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfigCSVMissingFile(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "nope.csv")} {
		cfg, err := LoadConfigCSV(path)
		if err != nil {
			t.Fatalf("LoadConfigCSV(%q) error = %v", path, err)
		}
		if cfg.APIVersion != constants.DefaultAPIVersion || cfg.MaxRetries != constants.DefaultMaxRetries {
			t.Errorf("LoadConfigCSV(%q) did not return defaults: %+v", path, cfg)
		}
	}
}

func TestSaveConfigCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.csv")

	cfg := DefaultConfig()
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy"
	cfg.ProxyPort = 8080
	cfg.ProxyUser = "u"
	cfg.ProxyPassword = "secret"
	cfg.MaxRetries = 0

	if err := SaveConfigCSV(cfg, path); err != nil {
		t.Fatalf("SaveConfigCSV() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); strings.Contains(got, "secret") {
		t.Errorf("proxy password written to config file:\n%s", got)
	}

	loaded, err := LoadConfigCSV(path)
	if err != nil {
		t.Fatalf("LoadConfigCSV() error = %v", err)
	}
	if loaded.ProxyMode != "basic" || loaded.ProxyHost != "proxy" || loaded.ProxyPort != 8080 || loaded.ProxyUser != "u" {
		t.Errorf("proxy settings not preserved: %+v", loaded)
	}
	if loaded.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", loaded.MaxRetries)
	}
	if loaded.APIVersion != cfg.APIVersion || loaded.RequestTimeout != cfg.RequestTimeout {
		t.Errorf("api settings not preserved: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"ntlm", func(c *Config) { c.ProxyMode = "NTLM" }, false},
		{"unknown proxy mode", func(c *Config) { c.ProxyMode = "socks" }, true},
		{"empty api version", func(c *Config) { c.APIVersion = "" }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
