// Package radio abstracts CAT control behind a single capability interface.
// Backends form a closed set selected at startup; the core only ever calls
// Tune, on an explicit user action with a selected spot.
package radio

import (
	"errors"

	"rbnvfd/spot"
)

// Sentinel errors for the caller-facing taxonomy. A tuning failure is fatal
// to that one operation only and never to the process.
var (
	ErrNotConnected  = errors.New("radio not connected")
	ErrNotConfigured = errors.New("radio not configured")
)

// Controller is the radio capability consumed by the core.
type Controller interface {
	// IsConnected reports whether the backend currently holds a link.
	IsConnected() bool
	// Connect establishes the backend link.
	Connect() error
	// Disconnect drops the link. Safe to call when not connected.
	Disconnect()
	// Tune sets frequency (kHz) and mode on the rig.
	Tune(freqKHz float64, mode spot.RadioMode) error
	// BackendName identifies the backend for status display.
	BackendName() string
}

// Config selects and parameterizes the backend.
type Config struct {
	Enabled     bool   `yaml:"enabled"`
	Backend     string `yaml:"backend"` // "rigctld"
	RigctldHost string `yaml:"rigctld_host"`
	RigctldPort int    `yaml:"rigctld_port"`
}

// NewController builds the configured backend. Disabled or unknown backends
// yield the no-op controller, so callers never hold a nil Controller.
func NewController(cfg Config) Controller {
	if !cfg.Enabled {
		return &Noop{}
	}
	switch cfg.Backend {
	case "rigctld", "":
		return NewRigctld(cfg.RigctldHost, cfg.RigctldPort)
	default:
		return &Noop{}
	}
}

// Noop is the placeholder backend used when CAT control is disabled.
type Noop struct{}

func (n *Noop) IsConnected() bool { return false }
func (n *Noop) Connect() error    { return ErrNotConfigured }
func (n *Noop) Disconnect()       {}
func (n *Noop) Tune(freqKHz float64, mode spot.RadioMode) error {
	return ErrNotConfigured
}
func (n *Noop) BackendName() string { return "none" }
