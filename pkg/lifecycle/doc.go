// Package lifecycle provides the periodic scheduler and the Start/Stop state
// machine used by the tracker.
//
// A [Scheduler] runs one function every period or earlier on Trigger; the
// tracker owns one for flushing and one for uploading. A [Manager] guards
// state transitions (Stopped, Starting, Running, Stopping, Crashed) and
// waits for the scheduler goroutines with a timeout on shutdown.
//
// # Usage
//
// Create a lifecycle manager:
//
//	manager := lifecycle.NewManager(logger, observer)
//
//	if !manager.CanStart() {
//	    return ErrAlreadyRunning
//	}
//
//	if err := manager.TransitionTo(lifecycle.StateStarting, "starting"); err != nil {
//	    return err
//	}
//
//	flush := lifecycle.NewScheduler("flush", 30*time.Second, tr.Flush, logger)
//	manager.Go(func() { flush.Run(ctx) })
//
//	// on shutdown
//	flush.Stop()
//
//	if err := manager.WaitWithTimeout(30 * time.Second); err != nil {
//	    return ErrShutdownTimeout
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
