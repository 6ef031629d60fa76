package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models keepup.yml.
type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
		RateLimit struct {
			PerSecond float64 `yaml:"per_second"`
			Burst     int     `yaml:"burst"`
		} `yaml:"rate_limit"`
		CSRFHeader string `yaml:"csrf_header"`
	} `yaml:"server"`
	Gateways struct {
		Default string        `yaml:"default"`
		Khalti  KhaltiConfig  `yaml:"khalti"`
		Esewa   EsewaConfig   `yaml:"esewa"`
		Sandbox SandboxConfig `yaml:"sandbox"`
	} `yaml:"gateways"`
	Mail struct {
		Mode     string `yaml:"mode"` // log or smtp
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		From     string `yaml:"from"`
	} `yaml:"mail"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type KhaltiConfig struct {
	SecretKey string `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url"`
	ReturnURL string `yaml:"return_url"`
}

type EsewaConfig struct {
	ProductCode string `yaml:"product_code"`
	SecretKey   string `yaml:"secret_key"`
	BaseURL     string `yaml:"base_url"`
	ReturnURL   string `yaml:"return_url"`
}

type SandboxConfig struct {
	Enabled bool `yaml:"enabled"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Enabled        *bool    `yaml:"enabled"`
	Events         []string `yaml:"events"`
	Secret         string   `yaml:"secret"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("config.server.jwt_secret is required")
	}
	switch c.Gateways.Default {
	case "khalti", "esewa", "sandbox":
	case "":
		return fmt.Errorf("config.gateways.default is required")
	default:
		return fmt.Errorf("config.gateways.default must be khalti, esewa or sandbox")
	}
	if c.Gateways.Default == "khalti" && c.Gateways.Khalti.SecretKey == "" {
		return fmt.Errorf("config.gateways.khalti.secret_key is required")
	}
	if c.Gateways.Default == "esewa" {
		if c.Gateways.Esewa.ProductCode == "" {
			return fmt.Errorf("config.gateways.esewa.product_code is required")
		}
		if c.Gateways.Esewa.SecretKey == "" {
			return fmt.Errorf("config.gateways.esewa.secret_key is required")
		}
	}
	switch c.Mail.Mode {
	case "", "log":
	case "smtp":
		if c.Mail.Host == "" || c.Mail.From == "" {
			return fmt.Errorf("config.mail.host and config.mail.from are required for smtp mode")
		}
	default:
		return fmt.Errorf("config.mail.mode must be log or smtp")
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("config.webhooks[%d].url is required", i)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "keepup.yml")
}

// Load reads and validates config from a workspace, returning defaults if
// the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct (sandbox gateway, log mailer).
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Unset fields
// fall back to defaults before validation.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// GenerateDefault returns the default config YAML for keepup.yml.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `server:
  addr: ":8080"
  base_path: /v1
  jwt_secret: dev-secret-change-me
  rate_limit:
    per_second: 20
    burst: 40
  csrf_header: X-KeepUp-Client

gateways:
  default: sandbox
  sandbox:
    enabled: true
  khalti:
    secret_key: ""
    base_url: https://a.khalti.com/api/v2
    return_url: http://localhost:3000/payment/callback
  esewa:
    product_code: EPAYTEST
    secret_key: ""
    base_url: https://rc-epay.esewa.com.np
    return_url: http://localhost:3000/payment/callback

mail:
  mode: log
  host: ""
  port: 587
  username: ""
  password: ""
  from: noreply@keepup.local
`
