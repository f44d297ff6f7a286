package tracker

import (
	"context"

	"github.com/bft-labs/trackship/pkg/log"
)

// Plugin extends a Tracker with work that lives as long as it runs.
// Plugins are initialized on Start in registration order and shut down on
// Stop in reverse order.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// Controller is the part of a Tracker a plugin may drive.
type Controller interface {
	Tunables() Tunables
	Reconfigure(t Tunables) error
	Flush(ctx context.Context) error
	Pending() int
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	StorageDir string
	ServiceURL string
	DeviceID   string
	Logger     log.Logger
	Tracker    Controller
}
