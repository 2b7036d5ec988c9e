package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bosbase/realtime-go/retry"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultLanguage  = "en-US"
	defaultUserAgent = "bosbase-go-sdk"
)

// Config configures the client.
type Config struct {
	// BaseURL is the backend base URL prepended to all request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// Timeout is the default request timeout. Does not apply to streaming
	// requests, which are bounded by their context. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// Language is sent as Accept-Language on every request.
	Language string `yaml:"language" mapstructure:"language"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Retry configures retry behavior for idempotent requests. Nil disables retry.
	Retry *retry.Config `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return NewValidationError("base_url must be set")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return NewValidationError(fmt.Sprintf("base_url is not a valid URL: %v", err))
	}
	if c.Timeout <= 0 {
		return NewValidationError("timeout must be positive")
	}
	return nil
}

// DefaultRetryConfig returns a retry config that only retries errors the
// error classifier marks retryable.
func DefaultRetryConfig() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}
