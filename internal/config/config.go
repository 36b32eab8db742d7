package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds server configuration values.
type Config struct {
	ChatAddr          string        `mapstructure:"chat_addr" yaml:"chat_addr" validate:"required"`
	HTTPAddr          string        `mapstructure:"http_addr" yaml:"http_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`

	IntakeBuffer      int `mapstructure:"intake_buffer" yaml:"intake_buffer" validate:"min=1"`
	BroadcastCapacity int `mapstructure:"broadcast_capacity" yaml:"broadcast_capacity" validate:"min=1"`
	MaxLinesPerMinute int `mapstructure:"max_lines_per_minute" yaml:"max_lines_per_minute" validate:"min=0"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"omitempty,oneof=console json"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ChatAddr:          ":12321",
		HTTPAddr:          ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		IntakeBuffer:      256,
		BroadcastCapacity: 256,
		LogLevel:          "info",
		LogFormat:         "console",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ChatAddr != "" {
		c.ChatAddr = other.ChatAddr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.IntakeBuffer != 0 {
		c.IntakeBuffer = other.IntakeBuffer
	}
	if other.BroadcastCapacity != 0 {
		c.BroadcastCapacity = other.BroadcastCapacity
	}
	if other.MaxLinesPerMinute != 0 {
		c.MaxLinesPerMinute = other.MaxLinesPerMinute
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
