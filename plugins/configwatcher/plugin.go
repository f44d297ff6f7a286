// Package configwatcher reloads tracker tunables when a TOML config file
// changes on disk.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/sourcegraph/conc"

	"github.com/bft-labs/trackship/pkg/log"
	"github.com/bft-labs/trackship/pkg/tracker"
)

// Config holds configuration for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch. Empty disables the plugin.
	Path string

	// DebounceDelay collapses bursts of writes into one reload.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config watching path with default settings.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// tunablesFile is the subset of the config file that can change at runtime.
type tunablesFile struct {
	FlushInterval  string `toml:"flush_interval"`
	UploadInterval string `toml:"upload_interval"`
	MaxBufferBytes int    `toml:"max_buffer_bytes"`
}

// Plugin watches a config file and applies tunables to the running Tracker.
type Plugin struct {
	path          string
	debounceDelay time.Duration

	mu       sync.Mutex
	target   tracker.Controller
	logger   log.Logger
	cancel   context.CancelFunc
	wg       *conc.WaitGroup
	debounce *time.Timer
	closed   bool
}

// New creates a config watcher plugin.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file.
func (p *Plugin) Initialize(ctx context.Context, cfg tracker.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	if p.path == "" || cfg.Tracker == nil {
		p.logger.Warn("config watcher disabled: no config file or tracker")
		return nil
	}
	p.target = cfg.Tracker
	p.closed = false

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("config watcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg = conc.NewWaitGroup()
	p.wg.Go(func() { p.watchLoop(watchCtx, watcher) })

	p.logger.Info("config watcher started", log.String("path", p.path))
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	if p.debounce != nil {
		p.debounce.Stop()
	}
	cancel, wg := p.cancel, p.wg
	p.cancel, p.wg = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wg != nil {
		wg.Wait()
	}
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if err := p.Reload(); err != nil {
			p.logger.Warn("config reload failed", log.String("path", p.path), log.Err(err))
		}
	})
}

// Reload reads the config file and applies its tunables. Fields absent from
// the file keep their current values.
func (p *Plugin) Reload() error {
	p.mu.Lock()
	target, closed := p.target, p.closed
	p.mu.Unlock()
	if target == nil || closed {
		return nil
	}

	tun, err := readTunables(p.path)
	if err != nil {
		return err
	}
	if tun == (tracker.Tunables{}) {
		return nil
	}
	if err := target.Reconfigure(tun); err != nil {
		return err
	}

	p.logger.Info("config reloaded",
		log.Duration("flush_interval", tun.FlushInterval),
		log.Duration("upload_interval", tun.UploadInterval),
		log.Int("max_buffer_bytes", tun.MaxBufferBytes),
	)
	return nil
}

func readTunables(path string) (tracker.Tunables, error) {
	var tun tracker.Tunables

	b, err := os.ReadFile(path)
	if err != nil {
		return tun, err
	}
	var f tunablesFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return tun, fmt.Errorf("parse %s: %w", path, err)
	}

	if tun.FlushInterval, err = parseDuration("flush_interval", f.FlushInterval); err != nil {
		return tun, err
	}
	if tun.UploadInterval, err = parseDuration("upload_interval", f.UploadInterval); err != nil {
		return tun, err
	}
	if f.MaxBufferBytes < 0 {
		return tun, errors.New("max_buffer_bytes must not be negative")
	}
	tun.MaxBufferBytes = f.MaxBufferBytes
	return tun, nil
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

var _ tracker.Plugin = (*Plugin)(nil)
