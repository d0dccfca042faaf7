package config

import (
	"os"
	"path/filepath"
)

const appName = "clicksim"

// XDGConfigHome returns $XDG_CONFIG_HOME, or ~/.config when unset.
func XDGConfigHome() string {
	return xdgHome("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome returns $XDG_DATA_HOME, or ~/.local/share when unset.
func XDGDataHome() string {
	return xdgHome("XDG_DATA_HOME", ".local", "share")
}

// DefaultDBPath is the run history database.
func DefaultDBPath() string {
	return appPath(XDGDataHome(), appName+".db")
}

// DefaultConfigPath is the TOML config file.
func DefaultConfigPath() string {
	return appPath(XDGConfigHome(), "config.toml")
}

func xdgHome(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// appPath places name in the clicksim directory under base.
func appPath(base, name string) string {
	return filepath.Join(base, appName, name)
}
