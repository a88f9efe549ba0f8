package common

// Version is the release version, overridden at build time with
// -ldflags "-X example.com/rfidscan/pkg/common.Version=..."
var Version = "0.1.0-dev"
