package batch

import "github.com/bft-labs/trackship/pkg/log"

// Option configures a store.
type Option func(*options)

type options struct {
	serverID   string
	logger     log.Logger
	quarantine bool
}

func applyOptions(opts []Option) options {
	o := options{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithServerID stamps every persisted batch with an origin identifier.
func WithServerID(id string) Option {
	return func(o *options) {
		o.serverID = id
	}
}

// WithLogger sets the logger for a FileStore.
func WithLogger(l log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithQuarantine makes a FileStore move an unreadable head batch into a
// quarantine/ subdirectory and dequeue it instead of retrying it forever.
// Off by default.
func WithQuarantine(enabled bool) Option {
	return func(o *options) {
		o.quarantine = enabled
	}
}
