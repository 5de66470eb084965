package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// BackendConfig describes how the voting backend can be reached.
type BackendConfig struct {
	// BaseUrl is the scheme, host and port of the voting backend (e.g., "http://localhost:8083").
	BaseUrl string `yaml:"base_url"`
	// ApiPrefix is prepended to every API path.
	ApiPrefix string `yaml:"api_prefix"`
	// Timeout bounds a single request. Zero keeps the transport default (no client side timeout).
	Timeout time.Duration `yaml:"timeout"`
	// VerifyTls enables certificate verification for https backends.
	VerifyTls bool `yaml:"verify_tls"`
	// Debug enables request logging of the low-level API client.
	Debug bool `yaml:"debug"`
}

// Sanitize normalizes URL parts so that they can be joined safely.
func (b *BackendConfig) Sanitize() {
	b.BaseUrl = strings.TrimRight(strings.TrimSpace(b.BaseUrl), "/")
	b.ApiPrefix = strings.Trim(strings.TrimSpace(b.ApiPrefix), "/")
	if b.ApiPrefix != "" {
		b.ApiPrefix = "/" + b.ApiPrefix
	}
}

// Validate checks the backend configuration for errors.
func (b *BackendConfig) Validate() error {
	if b.BaseUrl == "" {
		return errors.New("missing base url")
	}

	u, err := url.Parse(b.BaseUrl)
	if err != nil {
		return fmt.Errorf("failed to parse base url %q: %w", b.BaseUrl, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in base url", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base url %q has no host", b.BaseUrl)
	}
	if b.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}

	return nil
}

// ApiUrl returns the full URL of the API root, e.g. "http://localhost:8083/api".
func (b *BackendConfig) ApiUrl() string {
	return b.BaseUrl + b.ApiPrefix
}
