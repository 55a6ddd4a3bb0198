// Package paths decides where edgemetrics keeps config.yaml and the journal
// store. Configuration is per user; the journal store defaults to the working
// directory so every journal folder carries its own data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration directory.
const AppName = "edgemetrics"

// DefaultDataDirName is the journal store created under the working
// directory when no data dir is configured.
const DefaultDataDirName = ".edgemetrics-db"

// Environment overrides.
const (
	EnvConfigDir = "EDGEMETRICS_CONFIG_DIR"
	EnvDataDir   = "EDGEMETRICS_DATA_DIR"
)

// host is the slice of the process environment path resolution reads.
type host struct {
	goos          string
	getenv        func(string) string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}

var sys = host{
	goos:          runtime.GOOS,
	getenv:        os.Getenv,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the per-user configuration directory:
// $XDG_CONFIG_HOME/edgemetrics or ~/.config/edgemetrics on Linux, and
// os.UserConfigDir()/edgemetrics elsewhere.
func DefaultConfigDir() (string, error) {
	return sys.defaultConfigDir()
}

// ResolveConfigDir picks the configuration directory: flag, then
// EDGEMETRICS_CONFIG_DIR, then DefaultConfigDir. Overrides are made absolute.
func ResolveConfigDir(flag string) (string, error) {
	return sys.resolveConfigDir(flag)
}

// ResolveDataDir picks the journal store directory: flag, then the data_dir
// value from config.yaml, then EDGEMETRICS_DATA_DIR, then
// $(CWD)/.edgemetrics-db. Overrides are made absolute.
func ResolveDataDir(flag, configured string) (string, error) {
	return sys.resolveDataDir(flag, configured)
}

func (h host) defaultConfigDir() (string, error) {
	if h.goos == "linux" {
		if xdg := h.getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := h.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", AppName), nil
	}
	dir, err := h.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

func (h host) resolveConfigDir(flag string) (string, error) {
	if dir := firstSet(flag, h.getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return h.defaultConfigDir()
}

func (h host) resolveDataDir(flag, configured string) (string, error) {
	if dir := firstSet(flag, configured, h.getenv(EnvDataDir)); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := h.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

func firstSet(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}
