package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/a8m/envsubst"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the voting client.
type Config struct {
	Backend BackendConfig `yaml:"backend"`

	Session SessionConfig `yaml:"session"`

	Monitor MonitorConfig `yaml:"monitor"`

	Audit AuditConfig `yaml:"audit"`

	Metrics MetricsConfig `yaml:"metrics"`

	Advanced struct {
		LogLevel  string `yaml:"log_level"`
		LogPretty bool   `yaml:"log_pretty"`
		LogJson   bool   `yaml:"log_json"`
	} `yaml:"advanced"`
}

// MonitorConfig controls the connectivity monitor.
type MonitorConfig struct {
	// Interval is the period between two reachability probes. The first probe runs immediately.
	Interval time.Duration `yaml:"interval"`
	// ProbeTimeout bounds a single probe request.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// MetricsConfig contains the configuration of the optional prometheus endpoint.
type MetricsConfig struct {
	// ListeningAddress of the metrics and health endpoint, an empty value disables the server.
	ListeningAddress string `yaml:"listening_address"`
}

// Sanitize fills in defaults for empty or invalid values.
func (c *Config) Sanitize() {
	c.Backend.Sanitize()
	c.Session.Sanitize()
	c.Audit.Sanitize()

	if c.Monitor.Interval <= 0 {
		c.Monitor.Interval = 30 * time.Second
	}
	if c.Monitor.ProbeTimeout <= 0 {
		c.Monitor.ProbeTimeout = 5 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("invalid backend configuration: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("invalid session configuration: %w", err)
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("invalid audit configuration: %w", err)
	}

	return nil
}

func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Backend = BackendConfig{
		BaseUrl:   "http://localhost:8083",
		ApiPrefix: "/api",
		VerifyTls: true,
	}

	cfg.Session = SessionConfig{
		Storage: SessionStorageBolt,
		Path:    "data/session.db",
		Key:     DefaultSessionKey,
	}

	cfg.Monitor = MonitorConfig{
		Interval:     30 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}

	cfg.Audit = AuditConfig{
		Enabled: false,
		Type:    DatabaseSQLite,
		DSN:     "data/audit.db",
	}

	cfg.Advanced.LogLevel = "info"
	cfg.Advanced.LogPretty = true

	return cfg
}

// GetConfig loads the configuration. The file name defaults to config.yml and can be overridden by the
// VOTE_PORTAL_CONFIG environment variable. A missing config file is not an error, defaults are used instead.
func GetConfig() (*Config, error) {
	cfgFileName := "config.yml"
	if envCfgFileName := os.Getenv("VOTE_PORTAL_CONFIG"); envCfgFileName != "" {
		cfgFileName = envCfgFileName
	}

	return GetConfigFromFile(cfgFileName)
}

// GetConfigFromFile loads the configuration from the given YAML file on top of the default values.
// Environment variables (optionally provided by a .env file) are substituted before parsing.
func GetConfigFromFile(cfgFileName string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := defaultConfig()

	err := loadConfigFile(cfg, cfgFileName)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("config file not found, using defaults", "file", cfgFileName)
	case err != nil:
		return nil, fmt.Errorf("failed to load config from yaml: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadDotEnv(filename string) error {
	if _, err := os.Stat(filename); err != nil {
		return nil // no env file, nothing to do
	}

	return godotenv.Load(filename)
}

func loadConfigFile(cfg any, filename string) error {
	data, err := envsubst.ReadFile(filename)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return err
	}

	return nil
}
