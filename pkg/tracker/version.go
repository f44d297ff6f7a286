package tracker

import (
	"fmt"

	"github.com/bft-labs/trackship/pkg/action"
	"github.com/bft-labs/trackship/pkg/batch"
	"github.com/bft-labs/trackship/pkg/codec"
	"github.com/bft-labs/trackship/pkg/lifecycle"
	"github.com/bft-labs/trackship/pkg/log"
	"github.com/bft-labs/trackship/pkg/sender"
	"github.com/bft-labs/trackship/pkg/state"
)

// Version information for the tracker module.
const (
	// Version is the current version of the tracker module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

type moduleVersion struct {
	version    string
	minVersion string
}

// ModuleVersions returns the version of every sub-module.
func ModuleVersions() map[string]string {
	out := make(map[string]string)
	for name, m := range modules() {
		out[name] = m.version
	}
	return out
}

func modules() map[string]moduleVersion {
	return map[string]moduleVersion{
		"action":    {action.Version, action.MinCompatibleVersion},
		"codec":     {codec.Version, codec.MinCompatibleVersion},
		"batch":     {batch.Version, batch.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"sender":    {sender.Version, sender.MinCompatibleVersion},
		"state":     {state.Version, state.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
		"tracker":   {Version, MinCompatibleVersion},
	}
}

// validateModuleVersions fails if any module is older than its own minimum
// compatible version.
func validateModuleVersions() error {
	for name, m := range modules() {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion. Versions are
// "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
