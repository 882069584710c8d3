package config

// Version is the cbdbnet binary version.
// Set at build time via: -ldflags "-X github.com/cbdb-network/cbdbnet/internal/config.Version=<tag>"
// Defaults to "dev" when built without ldflags.
var Version = "dev"
