// Package config loads the server's tuning parameters from the environment.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Server holds every knob the reactor server reads at boot.
type Server struct {
	Addr   string `env:"REACTOR_ADDR" envDefault:":8080"`
	DBPath string `env:"REACTOR_DB_PATH" envDefault:"data/reactor.db"`

	// Frame and persistence cadence
	TickInterval     time.Duration `env:"REACTOR_TICK_INTERVAL" envDefault:"16ms"`
	AutosaveInterval time.Duration `env:"REACTOR_AUTOSAVE_INTERVAL" envDefault:"30s"`
	SaveTimeout      time.Duration `env:"REACTOR_SAVE_TIMEOUT" envDefault:"5s"`
	SaveRetention    int           `env:"REACTOR_SAVE_RETENTION" envDefault:"10"`

	// Channel buffers and client limits
	BroadcastBuffer      int     `env:"REACTOR_BROADCAST_BUFFER" envDefault:"64"`
	ClientSendBuffer     int     `env:"REACTOR_CLIENT_SEND_BUFFER" envDefault:"64"`
	MaxMessagesPerSecond float64 `env:"REACTOR_MAX_MESSAGES_PER_SECOND" envDefault:"20"`
	MaxClients           int     `env:"REACTOR_MAX_CLIENTS" envDefault:"16"`

	LogLevel string `env:"REACTOR_LOG_LEVEL" envDefault:"info"`

	// Profile, when set, replaces the tick interval, buffers and client
	// limits with a named tuning profile ("default", "stress", "low").
	Profile string `env:"REACTOR_PROFILE"`

	// Seed for the simulation's random source. Zero means "pick one".
	Seed int64 `env:"REACTOR_SEED" envDefault:"0"`
}

// LoadServer parses and validates the server configuration.
func LoadServer() (*Server, error) {
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Server) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick interval must be positive, got %s", c.TickInterval))
	}
	if c.AutosaveInterval <= 0 {
		errs = append(errs, fmt.Errorf("autosave interval must be positive, got %s", c.AutosaveInterval))
	}
	if c.SaveRetention < 1 {
		errs = append(errs, fmt.Errorf("save retention must be at least 1, got %d", c.SaveRetention))
	}
	if c.ClientSendBuffer < 1 || c.BroadcastBuffer < 1 {
		errs = append(errs, errors.New("channel buffers must be at least 1"))
	}
	if c.MaxMessagesPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("max messages per second must be positive, got %v", c.MaxMessagesPerSecond))
	}
	return errors.Join(errs...)
}
