// Package config loads the runtime configuration from a YAML file and applies
// defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"rbnvfd/radio"
)

// Config is the complete runtime configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	RBN     RBNConfig     `yaml:"rbn"`
	Filters FilterConfig  `yaml:"filters"`
	Display DisplayConfig `yaml:"display"`
	Radio   radio.Config  `yaml:"radio"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig names this instance for log output.
type ServerConfig struct {
	Name string `yaml:"name"`
}

// RBNConfig points at the Reverse Beacon Network feed.
type RBNConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Callsign string `yaml:"callsign"`
}

// FilterConfig holds the store's filter parameters.
type FilterConfig struct {
	MinSNR        int `yaml:"min_snr"`
	MaxAgeMinutes int `yaml:"max_age_minutes"`
}

// DisplayConfig drives the scheduler and names the display device.
type DisplayConfig struct {
	Device          string `yaml:"device"` // e.g. /dev/ttyUSB0; empty = no display attached
	ScrollSeconds   int    `yaml:"scroll_seconds"`
	IdleDutyPercent int    `yaml:"idle_duty_percent"`
	ForceIdle       bool   `yaml:"force_idle"`
}

// AdminConfig enables the metrics HTTP listener when HTTPPort is nonzero.
type AdminConfig struct {
	HTTPPort    int    `yaml:"http_port"`
	BindAddress string `yaml:"bind_address"`
}

// LoggingConfig controls the optional daily log file.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads and parses filename, then fills in defaults.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Name == "" {
		c.Server.Name = "rbnvfd"
	}
	if c.RBN.Host == "" {
		c.RBN.Host = "rbn.telegraphy.de"
	}
	if c.RBN.Port == 0 {
		c.RBN.Port = 7000
	}
	if c.Filters.MinSNR == 0 {
		c.Filters.MinSNR = 10
	}
	if c.Filters.MaxAgeMinutes == 0 {
		c.Filters.MaxAgeMinutes = 10
	}
	if c.Display.ScrollSeconds == 0 {
		c.Display.ScrollSeconds = 3
	}
	if c.Display.IdleDutyPercent == 0 {
		c.Display.IdleDutyPercent = 20
	}
	if c.Radio.RigctldHost == "" {
		c.Radio.RigctldHost = "localhost"
	}
	if c.Radio.RigctldPort == 0 {
		c.Radio.RigctldPort = 4532
	}
	if c.Admin.BindAddress == "" {
		c.Admin.BindAddress = "127.0.0.1"
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 7
	}
}

// MaxAge returns the age gate as a duration.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Filters.MaxAgeMinutes) * time.Minute
}

// ScrollInterval returns the rotation gate as a duration.
func (c *Config) ScrollInterval() time.Duration {
	return time.Duration(c.Display.ScrollSeconds) * time.Second
}

// Print writes a startup summary of the effective configuration.
func (c *Config) Print() {
	fmt.Printf("Server: %s\n", c.Server.Name)
	fmt.Printf("RBN: %s:%d (as %s)\n", c.RBN.Host, c.RBN.Port, c.RBN.Callsign)
	fmt.Printf("Filters: min SNR %d dB, max age %d min\n", c.Filters.MinSNR, c.Filters.MaxAgeMinutes)
	if c.Display.Device != "" {
		fmt.Printf("Display: %s (scroll %ds, idle duty %d%%)\n",
			c.Display.Device, c.Display.ScrollSeconds, c.Display.IdleDutyPercent)
	}
	if c.Radio.Enabled {
		fmt.Printf("Radio: %s at %s:%d\n", c.Radio.Backend, c.Radio.RigctldHost, c.Radio.RigctldPort)
	}
	if c.Admin.HTTPPort != 0 {
		fmt.Printf("Admin: http://%s:%d/metrics\n", c.Admin.BindAddress, c.Admin.HTTPPort)
	}
}
