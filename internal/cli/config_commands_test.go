package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")

	out, err := executeRoot(t, "config", "path", "--config", path)
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if !strings.Contains(out, path) || !strings.Contains(out, "File does not exist") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestConfigShowHidesToken(t *testing.T) {
	for _, name := range []string{"AZURE_DEVOPS_EXT_PAT", "WITDL_PAT", "WITDL_API_VERSION", "WITDL_PROXY_MODE"} {
		t.Setenv(name, "")
	}
	path := filepath.Join(t.TempDir(), "config.csv")
	if err := os.WriteFile(path, []byte("key,value\napi_version,6.0\n"), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := executeRoot(t, "config", "show", "--config", path, "--pat", "super-secret-token")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if strings.Contains(out, "super-secret-token") {
		t.Errorf("token printed:\n%s", out)
	}
	for _, want := range []string{"API Version:     6.0", "<set from flag>", "Proxy Mode: no-proxy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"config", "init", "--config", path})
	cmd.SetIn(strings.NewReader("7.0\ny\nbasic\nproxy.local\n3128\nbob\nlocalhost\nn\n"))
	var out strings.Builder
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init error = %v\n%s", err, out.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"api_version,7.0", "proxy_mode,basic", "proxy_host,proxy.local", "proxy_port,3128", "proxy_user,bob"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("config missing %q:\n%s", want, data)
		}
	}

	out.Reset()
	cmd = NewRootCmd()
	cmd.SetArgs([]string{"config", "init", "--config", path})
	cmd.SetOut(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("existing config overwritten without --force:\n%s", out.String())
	}
}
