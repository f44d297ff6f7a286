package configwatcher

import "github.com/bft-labs/trackship/pkg/tracker"

// WithConfigWatcher returns a tracker Option that reloads tunables from
// cfg.Path whenever the file changes.
//
//	t, err := tracker.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(path)),
//	)
func WithConfigWatcher(cfg Config) tracker.Option {
	return tracker.WithPlugin(New(cfg))
}
