// Package version holds the single build-time version string shared by the
// sidecar format and the CLI's --version output.
package version

// Version is the current release of the fingerprinting core.
const Version = "0.1.0"
