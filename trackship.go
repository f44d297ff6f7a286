// Package trackship buffers telemetry actions and ships them to a collector
// in durable, ordered batches.
//
// Example usage:
//
//	t, err := trackship.New(trackship.Config{
//	    ServiceURL: "https://collector.example.com/api",
//	    Token:      "app-token",
//	    StorageDir: "/var/lib/myapp/trackship",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
//	t.Track(action.NewEvent("signup").WithUserID("u-42"))
//
// The full API lives in pkg/tracker; this package re-exports the pieces
// most programs need.
package trackship

import "github.com/bft-labs/trackship/pkg/tracker"

// Config configures a Tracker. See tracker.Config.
type Config = tracker.Config

// Tracker is the running client. See tracker.Tracker.
type Tracker = tracker.Tracker

// Option configures optional Tracker behavior.
type Option = tracker.Option

// Tunables are the settings a running Tracker accepts through Reconfigure.
type Tunables = tracker.Tunables

// New creates a Tracker. Call Start to run the background loops.
func New(cfg Config, opts ...Option) (*Tracker, error) {
	return tracker.New(cfg, opts...)
}

// Version is the library version.
const Version = tracker.Version
