// Package types defines the Store interfaces, configuration, storage key
// layout, backup record shapes and standard errors shared by the edgemetrics
// storage layer.
package types
