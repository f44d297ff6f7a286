// Package tracker collects telemetry actions and ships them to a collector.
//
// A [Tracker] buffers actions in memory, persists the buffer as one batch on
// every flush, and uploads pending batches oldest first. Delivery is
// at-least-once: a batch leaves the store only after the collector
// acknowledged it, and a failed batch blocks everything behind it until a
// later attempt succeeds.
//
// # Basic Usage
//
//	tr, err := tracker.New(tracker.Config{
//	    ServiceURL: "https://collector.example.com/api",
//	    Token:      "app-token",
//	    StorageDir: "/var/lib/myapp/telemetry",
//	}, tracker.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := tr.Start(ctx); err != nil {
//	    return err
//	}
//	defer tr.Stop()
//
//	tr.Track(action.NewEvent("level_complete").WithProperty("level", 3))
//
// # Flushing
//
// The flush loop runs every FlushInterval. It runs early when an identify
// action is tracked, when the first session is tracked before any batch
// exists, and when the buffered actions reach MaxBufferBytes by their
// approximate size. Stop always flushes what is left.
//
// # Storage
//
// With StorageDir set, batches are files and survive restarts; the device
// id is kept in identity.json in the same directory. Without it, batches
// live in memory only.
//
// # Events and Plugins
//
// Implement [EventHandler] (embed [BaseEventHandler] for defaults) to observe
// flushes and deliveries. A [Plugin] receives a [Controller] on Start and
// can retune the loops at runtime through [Tracker.Reconfigure].
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules.
package tracker
