package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/trackship/internal/cliconfig"
	"github.com/bft-labs/trackship/pkg/batch"
	"github.com/bft-labs/trackship/pkg/codec"
	"github.com/bft-labs/trackship/pkg/log"
	"github.com/bft-labs/trackship/pkg/tracker"
	"github.com/bft-labs/trackship/plugins/configwatcher"
)

const longHelp = `Ship telemetry actions to a collector.

trackship reads one JSON-encoded action per line from stdin (or --input),
buffers them, persists them as numbered batches in --storage-dir and uploads
the batches in order. Batches survive restarts and are retried until the
collector acknowledges them.

Configuration is read from $HOME/.trackship/config.toml, then TRACKSHIP_*
environment variables, then flags. Later sources win.`

var exampleUsage = strings.TrimSpace(`
  tail -F events.ndjson | trackship --token <token> --storage-dir /var/lib/trackship
  trackship --config ./trackship.toml --input backlog.ndjson --once
  trackship pending --storage-dir /var/lib/trackship
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return tracker.Version
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "trackship",
		Short:         "Ship telemetry actions to a collector",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, &cfg, cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := cliconfig.NewLogger(os.Stderr, cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			logger.Info().Interface("config", cfg.Masked()).Msg("configuration")
			return run(cfg, cfgFile, logger)
		},
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "Show batches waiting in the storage directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			if cfg.StorageDir == "" {
				return errors.New("storage-dir is required")
			}
			store, err := batch.OpenFileStore(cfg.StorageDir, codec.NewJSON())
			if err != nil {
				return err
			}
			ids := store.Pending()
			fmt.Fprintf(cmd.OutOrStdout(), "pending batches: %d\nnext batch id: %d\n", len(ids), store.NextID())
			for _, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "  %d\n", id)
			}
			return nil
		},
	}
	root.AddCommand(pending)

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.trackship/config.toml)")
	pf.StringVar(&cfg.StorageDir, "storage-dir", cfg.StorageDir, "directory for pending batches (empty keeps them in memory)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	f := root.Flags()
	f.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "collector endpoint")
	f.StringVar(&cfg.Token, "token", cfg.Token, "application token")
	f.StringVar(&cfg.DeviceID, "device-id", cfg.DeviceID, "device id (default: generated and kept in storage-dir)")
	f.StringVar(&cfg.Platform, "platform", cfg.Platform, "platform reported to the collector (default: GOOS)")
	f.StringVar(&cfg.DeviceType, "device-type", cfg.DeviceType, "device type reported to the collector")
	f.StringVar(&cfg.ServerID, "server-id", cfg.ServerID, "origin stamped on every batch")
	f.StringToStringVar(&cfg.Params, "param", cfg.Params, "extra query parameter key=value (repeatable)")
	f.BoolVar(&cfg.Quarantine, "quarantine", cfg.Quarantine, "move unreadable batch files aside instead of retrying them")

	f.DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "period of the flush loop")
	f.DurationVar(&cfg.UploadInterval, "upload-interval", cfg.UploadInterval, "period of the upload loop")
	f.IntVar(&cfg.MaxBufferBytes, "max-buffer-bytes", cfg.MaxBufferBytes, "approximate buffered size that forces a flush")
	f.DurationVar(&cfg.HTTPTimeout, "http-timeout", cfg.HTTPTimeout, "timeout for a whole upload request")
	f.DurationVar(&cfg.IOTimeout, "io-timeout", cfg.IOTimeout, "timeout for network reads and writes")

	f.StringVarP(&cfg.Input, "input", "i", cfg.Input, "NDJSON file to read actions from (default: stdin)")
	f.BoolVar(&cfg.Once, "once", cfg.Once, "exit after the input ends and the backlog is uploaded")
	f.DurationVar(&cfg.DrainTimeout, "drain-timeout", cfg.DrainTimeout, "with --once, how long to retry uploads before giving up (0 = 15m)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trackship: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig applies the config file and environment to cfg without
// overriding flags set on the command line. It returns the config file
// path in use, or "" if none exists.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func run(cfg cliconfig.Config, cfgFile string, logger zerolog.Logger) error {
	opts := []tracker.Option{
		tracker.WithLogger(log.NewZerologAdapterWithLogger(logger)),
	}
	if cfgFile != "" && !cfg.Once {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig(cfgFile)))
	}

	t, err := tracker.New(cfg.TrackerConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}

	in, err := openInput(cfg.Input)
	if err != nil {
		_ = t.Stop()
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	type result struct {
		stats ingestStats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		st, err := ingest(ctx, in, codec.NewJSON(), t.Track, logger)
		done <- result{st, err}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received signal, stopping")
	case res := <-done:
		logger.Info().
			Int("tracked", res.stats.Tracked).
			Int("skipped", res.stats.Skipped).
			Msg("input finished")
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			logger.Error().Err(res.err).Msg("input failed")
		}
		if cfg.Once {
			if err := t.Drain(ctx, cfg.DrainTimeout); err != nil {
				runErr = fmt.Errorf("%w (%d batches kept)", err, t.Pending())
			}
		} else {
			<-ctx.Done()
			logger.Info().Msg("received signal, stopping")
		}
	}

	if err := t.Stop(); err != nil {
		logger.Error().Err(err).Msg("stop tracker")
		runErr = errors.Join(runErr, err)
	}
	if n := t.Pending(); n > 0 {
		logger.Info().Int("batches", n).Msg("batches left for the next run")
	}
	return runErr
}
