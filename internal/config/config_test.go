package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Gateways.Default != "sandbox" || !cfg.Gateways.Sandbox.Enabled {
		t.Errorf("default gateway = %q, sandbox enabled = %v", cfg.Gateways.Default, cfg.Gateways.Sandbox.Enabled)
	}
	if cfg.Mail.Mode != "log" {
		t.Errorf("default mail mode = %q", cfg.Mail.Mode)
	}
	if cfg.Server.Addr == "" || cfg.Server.JWTSecret == "" {
		t.Error("default server config incomplete")
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
server:
  addr: ":9090"
gateways:
  default: khalti
  khalti:
    secret_key: live-key
webhooks:
  - url: https://hooks.example.com/keepup
    events: [purchase.complete]
    secret: whsec
    timeout_seconds: 3
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	// Unset fields keep their defaults.
	if cfg.Server.BasePath != "/v1" || cfg.Mail.From != "noreply@keepup.local" {
		t.Errorf("defaults lost: base_path=%q from=%q", cfg.Server.BasePath, cfg.Mail.From)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].TimeoutSeconds != 3 {
		t.Errorf("webhooks = %+v", cfg.Webhooks)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown gateway", "gateways:\n  default: stripe\n", "must be khalti"},
		{"khalti without key", "gateways:\n  default: khalti\n", "secret_key is required"},
		{"esewa without product", "gateways:\n  default: esewa\n  esewa:\n    product_code: \"\"\n    secret_key: s\n", "product_code is required"},
		{"bad mail mode", "mail:\n  mode: carrier-pigeon\n", "mode must be log or smtp"},
		{"smtp without host", "mail:\n  mode: smtp\n  host: \"\"\n", "host and config.mail.from"},
		{"webhook without url", "webhooks:\n  - secret: x\n", "url is required"},
	}
	for _, tc := range cases {
		_, err := FromYAML([]byte(tc.yaml))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: err = %v, want %q", tc.name, err, tc.want)
		}
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gateways.Default != "sandbox" {
		t.Errorf("gateway = %q", cfg.Gateways.Default)
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keepup.yml"), []byte("server:\n  addr: \":7000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}
