package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/trackship/pkg/action"
	"github.com/bft-labs/trackship/pkg/batch"
	"github.com/bft-labs/trackship/pkg/codec"
	"github.com/bft-labs/trackship/pkg/lifecycle"
	"github.com/bft-labs/trackship/pkg/log"
	"github.com/bft-labs/trackship/pkg/sender"
	"github.com/bft-labs/trackship/pkg/state"
)

// Tracker buffers actions, persists them as batches and uploads the
// batches in order.
//
// Track is safe to call from any goroutine and never does I/O. Flushing
// and uploading happen on two background loops after Start, or on demand
// through Flush and Upload.
type Tracker struct {
	config   Config
	opts     options
	logger   log.Logger
	store    batch.Store
	sender   sender.Sender
	metadata sender.Metadata
	manager  *lifecycle.DefaultManager

	bufMu   sync.Mutex
	buffer  []action.Action
	bufSize int

	flushMu  sync.Mutex
	uploadMu sync.Mutex

	// everPersisted is set once the store has assigned a batch id.
	everPersisted  atomic.Bool
	maxBufferBytes atomic.Int64

	// schedMu orders scheduler replacement against Reconfigure so a new
	// period is never applied to a scheduler that is being replaced.
	schedMu  sync.Mutex
	flusher  atomic.Pointer[lifecycle.Scheduler]
	uploader atomic.Pointer[lifecycle.Scheduler]

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a Tracker in StateStopped.
//
// Only store initialization and identity loading can fail here; once New
// returns, nothing on the tracking or delivery paths returns errors to
// the caller except the explicit Flush, Upload and Drain calls.
func New(cfg Config, opts ...Option) (*Tracker, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = codec.NewJSON()
	}

	t := &Tracker{
		config: cfg,
		opts:   o,
		logger: o.logger,
	}

	if err := t.initIdentity(); err != nil {
		return nil, err
	}
	if err := t.initStore(); err != nil {
		return nil, err
	}
	t.initSender()

	t.manager = lifecycle.NewManager(t.logger, stateObserver{handler: o.eventHandler})
	t.maxBufferBytes.Store(int64(cfg.MaxBufferBytes))
	t.everPersisted.Store(t.store.NextID() > 0)
	t.resetSchedulers()

	return t, nil
}

func (t *Tracker) initIdentity() error {
	if t.config.DeviceID != "" {
		return nil
	}
	if t.config.StorageDir == "" {
		t.config.DeviceID = uuid.NewString()
		t.logger.Warn("no storage dir, device id will change on restart",
			log.String("device_id", t.config.DeviceID))
		return nil
	}
	id, err := state.LoadOrCreate(context.Background(), state.NewFileRepository(t.config.StorageDir))
	if err != nil {
		return err
	}
	t.config.DeviceID = id.DeviceID
	return nil
}

func (t *Tracker) initStore() error {
	switch {
	case t.opts.store != nil:
		t.store = t.opts.store
	case t.config.StorageDir != "":
		s, err := batch.OpenFileStore(t.config.StorageDir, t.opts.codec,
			batch.WithServerID(t.config.ServerID),
			batch.WithLogger(t.logger),
			batch.WithQuarantine(t.config.Quarantine),
		)
		if err != nil {
			return err
		}
		t.store = s
	default:
		t.store = batch.NewMemoryStore(batch.WithServerID(t.config.ServerID))
	}
	return nil
}

func (t *Tracker) initSender() {
	t.metadata = sender.Metadata{
		ServiceURL: t.config.ServiceURL,
		Token:      t.config.Token,
		DeviceID:   t.config.DeviceID,
		Platform:   t.config.Platform,
		DeviceType: t.config.DeviceType,
		Params:     t.config.Params,
	}
	if t.opts.sender != nil {
		t.sender = t.opts.sender
		return
	}
	client := t.opts.httpClient
	if client == nil {
		client = sender.NewHTTPClient(t.config.HTTPTimeout, t.config.IOTimeout)
	}
	t.sender = sender.NewHTTPSender(client, t.opts.codec, t.logger, sender.WithClock(t.opts.clock))
}

// resetSchedulers installs fresh schedulers with the current periods.
// A stopped Scheduler cannot run again.
func (t *Tracker) resetSchedulers() {
	t.schedMu.Lock()
	defer t.schedMu.Unlock()

	flushPeriod, uploadPeriod := t.config.FlushInterval, t.config.UploadInterval
	if s := t.flusher.Load(); s != nil {
		flushPeriod = s.Period()
	}
	if s := t.uploader.Load(); s != nil {
		uploadPeriod = s.Period()
	}
	t.flusher.Store(lifecycle.NewScheduler("flush", flushPeriod, t.Flush, t.logger))
	t.uploader.Store(lifecycle.NewScheduler("upload", uploadPeriod, t.Upload, t.logger))
}

// Track buffers a. It never blocks on I/O and never fails; problems are
// logged. An identify action, the first session before any batch exists,
// or reaching the buffer threshold wakes the flush loop.
func (t *Tracker) Track(a action.Action) {
	if r := panics.Try(func() { t.track(a) }); r != nil {
		t.logger.Error("track failed",
			log.String("action", a.Name),
			log.Err(r.AsError()),
		)
	}
}

// track appends a and reports whether it woke the flush loop. Actions that
// cannot be encoded are logged and dropped.
func (t *Tracker) track(a action.Action) bool {
	if err := a.Validate(); err != nil {
		t.logger.Warn("action rejected", log.String("action", a.Name), log.Err(err))
		return false
	}
	size := t.opts.sizeOf(a)

	t.bufMu.Lock()
	t.buffer = append(t.buffer, a)
	t.bufSize += size
	flush := a.Kind() == action.KindIdentify ||
		(a.Kind() == action.KindSession && !t.everPersisted.Load()) ||
		int64(t.bufSize) >= t.maxBufferBytes.Load()
	t.bufMu.Unlock()

	if flush {
		t.flusher.Load().Trigger()
	}
	return flush
}

// Flush persists all buffered actions as one batch and wakes the upload
// loop. If the store fails, the actions go back to the front of the buffer,
// unless they cannot be encoded at all, in which case they are dropped.
func (t *Tracker) Flush(ctx context.Context) error {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.bufMu.Lock()
	actions, size := t.buffer, t.bufSize
	t.buffer, t.bufSize = nil, 0
	t.bufMu.Unlock()

	if len(actions) == 0 {
		t.logger.Debug("nothing to flush")
		return nil
	}

	start := t.opts.clock()
	id := t.store.NextID()
	if err := t.store.Persist(ctx, actions); err != nil {
		if errors.Is(err, batch.ErrEncode) {
			t.logger.Error("dropping actions that cannot be encoded",
				log.Int("actions", len(actions)),
				log.Err(err),
			)
		} else {
			t.bufMu.Lock()
			t.buffer = append(actions, t.buffer...)
			t.bufSize += size
			t.bufMu.Unlock()
		}

		t.opts.eventHandler.OnFlush(FlushEvent{
			BatchID:  -1,
			Actions:  len(actions),
			Bytes:    size,
			Duration: t.opts.clock().Sub(start),
			Err:      err,
		})
		return fmt.Errorf("flush %d actions: %w", len(actions), err)
	}
	t.everPersisted.Store(true)

	t.logger.Debug("flushed",
		log.Int64("batch_id", id),
		log.Int("actions", len(actions)),
		log.Int("approx_bytes", size),
	)
	t.opts.eventHandler.OnFlush(FlushEvent{
		BatchID:  id,
		Actions:  len(actions),
		Bytes:    size,
		Duration: t.opts.clock().Sub(start),
	})

	t.uploader.Load().Trigger()
	return nil
}

// Upload delivers pending batches oldest first until the store is empty or
// a delivery fails. A failed batch stays at the head and nothing behind it
// is attempted in the same call.
func (t *Tracker) Upload(ctx context.Context) error {
	t.uploadMu.Lock()
	defer t.uploadMu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := t.store.Next(ctx)
		if errors.Is(err, batch.ErrEmpty) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read pending batch: %w", err)
		}

		start := t.opts.clock()
		if err := t.sender.Send(ctx, b, t.metadata); err != nil {
			t.opts.eventHandler.OnSendError(SendErrorEvent{
				BatchID: b.ID,
				Actions: b.Len(),
				Error:   err,
			})
			return fmt.Errorf("upload batch %d: %w", b.ID, err)
		}

		if err := t.store.Remove(ctx); err != nil {
			return fmt.Errorf("remove delivered batch %d: %w", b.ID, err)
		}

		t.logger.Info("batch delivered",
			log.Int64("batch_id", b.ID),
			log.Int("actions", b.Len()),
		)
		t.opts.eventHandler.OnSendSuccess(SendSuccessEvent{
			BatchID:  b.ID,
			Actions:  b.Len(),
			Duration: t.opts.clock().Sub(start),
		})
	}
}

// Drain flushes and then retries Upload with exponential backoff until no
// batch is pending, ctx ends or maxElapsed passes. A maxElapsed of zero
// uses the backoff default of 15 minutes.
func (t *Tracker) Drain(ctx context.Context, maxElapsed time.Duration) error {
	if err := t.Flush(ctx); err != nil {
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.opts.retryInitial

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.logger.Warn("drain attempt failed",
				log.Err(err),
				log.Duration("retry_in", next),
			)
		}),
	}
	if maxElapsed > 0 {
		retryOpts = append(retryOpts, backoff.WithMaxElapsedTime(maxElapsed))
	}

	_, err := backoff.Retry(ctx, func() (int, error) {
		if err := t.Upload(ctx); err != nil {
			return 0, err
		}
		if n := t.store.Len(); n > 0 {
			return n, fmt.Errorf("%d batches still pending", n)
		}
		return 0, nil
	}, retryOpts...)
	if err != nil {
		return fmt.Errorf("drain: %w", err)
	}
	return nil
}

// Start runs the flush and upload loops in the background until Stop.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.manager.CanStart() {
		return lifecycle.ErrAlreadyRunning
	}
	if err := t.manager.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	pluginCfg := PluginConfig{
		StorageDir: t.config.StorageDir,
		ServiceURL: t.config.ServiceURL,
		DeviceID:   t.config.DeviceID,
		Logger:     t.logger,
		Tracker:    t,
	}
	for i, p := range t.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			t.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err),
			)
			t.shutdownPlugins(t.opts.plugins[:i])
			cancel()
			_ = t.manager.TransitionTo(StateCrashed, "plugin init failed: "+p.Name())
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		t.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	flusher, uploader := t.flusher.Load(), t.uploader.Load()
	t.manager.Go(func() { flusher.Run(runCtx) })
	t.manager.Go(func() { uploader.Run(runCtx) })

	if n := t.store.Len(); n > 0 {
		t.logger.Info("pending batches from previous run", log.Int("batches", n))
		uploader.Trigger()
	}

	return t.manager.TransitionTo(StateRunning, "loops started")
}

// Stop ends both loops, aborts any in-flight upload and flushes the buffer
// one last time. It returns lifecycle.ErrShutdownTimeout if the loops did
// not end within Config.ShutdownTimeout.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.manager.CanStop() {
		return lifecycle.ErrNotRunning
	}
	if err := t.manager.TransitionTo(StateStopping, "Stop() called"); err != nil {
		return err
	}

	t.flusher.Load().Stop()
	t.uploader.Load().Stop()
	if t.cancel != nil {
		t.cancel()
	}

	waitErr := t.manager.WaitWithTimeout(t.config.ShutdownTimeout)

	flushErr := t.Flush(context.Background())
	if flushErr != nil {
		t.logger.Error("final flush failed", log.Err(flushErr))
	}

	t.shutdownPlugins(t.opts.plugins)
	t.resetSchedulers()

	if waitErr != nil {
		_ = t.manager.TransitionTo(StateCrashed, "shutdown timeout")
	} else {
		_ = t.manager.TransitionTo(StateStopped, "graceful shutdown")
	}
	return errors.Join(waitErr, flushErr)
}

func (t *Tracker) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			t.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err),
			)
			continue
		}
		t.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

// Reconfigure applies new loop periods and buffer threshold. Zero fields
// keep their current value. Periods take effect from the next wait.
func (t *Tracker) Reconfigure(tun Tunables) error {
	if err := tun.validate(); err != nil {
		return err
	}

	t.schedMu.Lock()
	defer t.schedMu.Unlock()

	if tun.FlushInterval > 0 {
		t.flusher.Load().SetPeriod(tun.FlushInterval)
	}
	if tun.UploadInterval > 0 {
		t.uploader.Load().SetPeriod(tun.UploadInterval)
	}
	if tun.MaxBufferBytes > 0 {
		t.maxBufferBytes.Store(int64(tun.MaxBufferBytes))
	}
	t.logger.Info("tracker reconfigured",
		log.Duration("flush_interval", t.flusher.Load().Period()),
		log.Duration("upload_interval", t.uploader.Load().Period()),
		log.Int64("max_buffer_bytes", t.maxBufferBytes.Load()),
	)
	return nil
}

// Tunables returns the current runtime settings.
func (t *Tracker) Tunables() Tunables {
	return Tunables{
		FlushInterval:  t.flusher.Load().Period(),
		UploadInterval: t.uploader.Load().Period(),
		MaxBufferBytes: int(t.maxBufferBytes.Load()),
	}
}

// Status returns the current lifecycle state.
func (t *Tracker) Status() State {
	return t.manager.State()
}

// Pending returns the number of batches waiting for delivery.
func (t *Tracker) Pending() int {
	return t.store.Len()
}

// Buffered returns the number of actions not yet flushed.
func (t *Tracker) Buffered() int {
	t.bufMu.Lock()
	defer t.bufMu.Unlock()
	return len(t.buffer)
}

// DeviceID returns the device id sent with every batch.
func (t *Tracker) DeviceID() string {
	return t.config.DeviceID
}

// DeviceKey returns the device lookup key for this installation.
func (t *Tracker) DeviceKey() string {
	return t.metadata.DeviceKey()
}

var _ Controller = (*Tracker)(nil)
