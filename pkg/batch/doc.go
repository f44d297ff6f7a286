// Package batch provides the pending-batch queue between flushing and upload.
//
// A [Store] is a FIFO of [Batch] values. [MemoryStore] keeps batches in
// process memory and loses them on restart. [FileStore] writes one
// DEFLATE-compressed file per batch and rebuilds its queue from the
// directory on open, so batches survive crashes.
//
// # Usage
//
//	store, err := batch.OpenFileStore(dir, codec.NewJSON(), batch.WithServerID("eu-1"))
//	if err != nil {
//	    return err
//	}
//	if err := store.Persist(ctx, actions); err != nil {
//	    // nothing was written; the actions are still the caller's
//	}
//	b, err := store.Next(ctx)
//	if errors.Is(err, batch.ErrEmpty) {
//	    // nothing pending
//	}
//	// deliver b, then
//	_ = store.Remove(ctx)
//
// # File layout
//
// A store directory holds files named batchFile#<11-digit id> and a
// lastBatchId file with the next id to assign as decimal text.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package batch
