// Package state persists the identity of a trackship installation.
//
// The first run generates a random device id and stores it in
// identity.json inside the storage directory. Later runs reuse it so the
// collector sees one stable device across restarts.
//
// # Usage
//
//	repo := state.NewFileRepository("/var/lib/trackship")
//	id, err := state.LoadOrCreate(ctx, repo)
//	if err != nil {
//	    return err
//	}
//	metadata.DeviceID = id.DeviceID
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package state
