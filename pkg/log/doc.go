// Package log is the structured logging seam used by every trackship component.
//
// Components depend only on the [Logger] interface. Two implementations ship
// with the package: [ZerologAdapter], backed by github.com/rs/zerolog, and
// [NoopLogger], which the library uses when the host does not supply one.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	logger.Info("batch persisted", log.Int64("batch_id", 42), log.Int("actions", 7))
//
// Hosts that already run another logging library implement [Logger] directly.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
