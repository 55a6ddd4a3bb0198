// Package edgemetrics holds build-level constants for the edgemetrics module.
package edgemetrics

// Version is the release version reported by the CLI.
const Version = "0.3.0"
