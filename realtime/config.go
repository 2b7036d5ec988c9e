package realtime

import (
	"time"

	"github.com/bosbase/realtime-go/client"
)

const (
	defaultPath           = "/api/realtime"
	defaultBackoff        = 500 * time.Millisecond
	defaultPollInterval   = 50 * time.Millisecond
	defaultConnectTimeout = 15 * time.Second
)

// Config configures the realtime service.
type Config struct {
	// Path is the realtime endpoint path. Defaults to "/api/realtime".
	Path string `yaml:"path" mapstructure:"path"`

	// Backoff is the fixed delay before reconnecting after a dropped
	// stream. Defaults to 500ms.
	Backoff time.Duration `yaml:"backoff" mapstructure:"backoff"`

	// PollInterval is the interval at which blocked callers re-check the
	// connection state. Defaults to 50ms.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// ConnectTimeout bounds how long Subscribe waits for the stream to
	// become ready. Defaults to 15s.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.PollInterval > c.ConnectTimeout {
		return client.NewValidationError("poll_interval must not exceed connect_timeout")
	}
	return nil
}
