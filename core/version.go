package core

// Build information, overridden with -ldflags "-X github.com/itsneelabh/agentlaunch/core.Version=..."
var (
	// Version is the release this binary was built from
	Version = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
