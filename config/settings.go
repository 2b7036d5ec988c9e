package config

import (
	"github.com/bosbase/realtime-go/client"
	"github.com/bosbase/realtime-go/logger"
	"github.com/bosbase/realtime-go/pubsub"
	"github.com/bosbase/realtime-go/realtime"
)

// Settings is the full SDK configuration an application can load from file
// and environment. Every section carries its own defaults.
type Settings struct {
	Client   client.Config   `yaml:"client" mapstructure:"client"`
	Realtime realtime.Config `yaml:"realtime" mapstructure:"realtime"`
	PubSub   pubsub.Config   `yaml:"pubsub" mapstructure:"pubsub"`
	Logger   logger.Config   `yaml:"logger" mapstructure:"logger"`
}

// ApplyDefaults fills in zero-value fields across all sections.
func (s *Settings) ApplyDefaults() {
	s.Client.ApplyDefaults()
	s.Realtime.ApplyDefaults()
	s.PubSub.ApplyDefaults()
	s.Logger.ApplyDefaults()
}

// Validate checks every section.
func (s *Settings) Validate() error {
	if err := s.Client.Validate(); err != nil {
		return err
	}
	if err := s.Realtime.Validate(); err != nil {
		return err
	}
	if err := s.PubSub.Validate(); err != nil {
		return err
	}
	return s.Logger.Validate()
}
