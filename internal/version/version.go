// Package version holds the build-time version string, set via -ldflags
// the same way the teacher's cmd/kilroy reports `kilroy <version>`.
package version

// Version is overridden at build time via -ldflags "-X ...Version=...".
var Version = "dev"
