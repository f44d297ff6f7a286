package action

// Version information for the action module.
const (
	// Version is the current version of the action module.
	Version = "1.0.0"

	// MinCompatibleVersion is the oldest version whose encoded actions this one can read.
	MinCompatibleVersion = "1.0.0"
)
