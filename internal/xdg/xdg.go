// Package xdg provides XDG Base Directory paths for the workstation.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "workstation"

// ConfigDir returns the XDG config directory for the workstation.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}
