package pubsub

import (
	"time"

	"github.com/bosbase/realtime-go/client"
)

const (
	defaultPath           = "/api/pubsub"
	defaultConnectTimeout = 10 * time.Second
	defaultReconnectDelay = 300 * time.Millisecond
)

// Config configures the pubsub service.
type Config struct {
	// Path is the pubsub endpoint path. Defaults to "/api/pubsub".
	Path string `yaml:"path" mapstructure:"path"`

	// ConnectTimeout bounds how long Publish and Subscribe wait for the
	// socket open handshake. Defaults to 10s.
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`

	// ReconnectDelay is the fixed delay before redialing after a
	// non-manual close. Defaults to 300ms.
	ReconnectDelay time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = defaultPath
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = defaultReconnectDelay
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.ReconnectDelay > c.ConnectTimeout {
		return client.NewValidationError("reconnect_delay must not exceed connect_timeout")
	}
	return nil
}
