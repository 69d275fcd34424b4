// Package version holds the promptcheck release version stamped into run
// reports and the CLI --version output.
package version

// Version is overridable at build time:
//
//	go build -ldflags "-X github.com/promptcheck/promptcheck/internal/version.Version=v0.2.0"
var Version = "0.1.0"
