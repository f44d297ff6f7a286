package tracker

import (
	"time"

	"github.com/bft-labs/trackship/pkg/action"
	"github.com/bft-labs/trackship/pkg/batch"
	"github.com/bft-labs/trackship/pkg/log"
	"github.com/bft-labs/trackship/pkg/sender"
)

// Option configures optional behavior of a Tracker.
type Option func(*options)

type options struct {
	httpClient   sender.HTTPClient
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	store        batch.Store
	codec        batch.Codec
	sender       sender.Sender
	sizeOf       func(action.Action) int
	clock        func() time.Time
	retryInitial time.Duration
}

func defaultOptions() options {
	return options{
		logger:       log.NewNoopLogger(),
		eventHandler: BaseEventHandler{},
		sizeOf:       action.Action.ApproximateSize,
		clock:        time.Now,
		retryInitial: 500 * time.Millisecond,
	}
}

// WithHTTPClient sets the HTTP client used for uploads. By default a client
// bounded by Config.HTTPTimeout and Config.IOTimeout is used.
func WithHTTPClient(client sender.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for tracker events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.eventHandler = handler
		}
	}
}

// WithPlugin registers a plugin to be initialized when the Tracker starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithStore replaces the store chosen from Config.StorageDir.
func WithStore(store batch.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithCodec replaces the default JSON codec.
func WithCodec(c batch.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithSender replaces the HTTP sender.
func WithSender(s sender.Sender) Option {
	return func(o *options) {
		o.sender = s
	}
}

// WithSizeEstimator replaces the approximate size used for the flush
// threshold.
func WithSizeEstimator(fn func(action.Action) int) Option {
	return func(o *options) {
		if fn != nil {
			o.sizeOf = fn
		}
	}
}

// WithClock sets the clock used for request timestamps and event durations.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithRetryInterval sets the first wait between Drain attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryInitial = d
		}
	}
}
