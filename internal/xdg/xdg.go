// Package xdg resolves XDG Base Directory paths for asana2sql.
// It falls back to the traditional ~/.config and ~/.local/state locations when the
// XDG environment variables are unset and creates missing directories with private
// permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under each XDG base directory.
const AppName = "asana2sql"

// ConfigDir returns the XDG config directory for asana2sql.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/asana2sql when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for asana2sql, used for log files.
// It falls back to ~/.local/state/asana2sql when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func ensure(env, homeRel string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
