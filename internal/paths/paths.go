// Package paths resolves the configuration and data directories of nasacl.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "nasacl"

// Environment variables that override the directories.
const (
	EnvConfigDir = "NASACL_CONFIG_DIR"
	EnvDataDir   = "NASACL_DATA_DIR"
)

// System-wide locations used when running as root on Linux.
const (
	SystemConfigDir = "/etc/nasacl"
	SystemDataDir   = "/var/lib/nasacl"
)

// platform holds the lookups tests override.
var platform = struct {
	goos          string
	uid           func() int
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	uid:           os.Geteuid,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

func systemWide() bool { return platform.goos == "linux" && platform.uid() == 0 }

// xdgDir returns $env/nasacl or ~/fallback/nasacl on Linux and the user
// config dir elsewhere.
func xdgDir(env string, fallback ...string) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, AppName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), AppName)...), nil
}

// DefaultConfigDir returns the platform default configuration directory.
//
// Linux root: /etc/nasacl
// Linux:      $XDG_CONFIG_HOME/nasacl (fallback ~/.config/nasacl)
// Otherwise:  os.UserConfigDir()/nasacl
func DefaultConfigDir() (string, error) {
	if systemWide() {
		return SystemConfigDir, nil
	}
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform default data directory.
//
// Linux root: /var/lib/nasacl
// Linux:      $XDG_DATA_HOME/nasacl (fallback ~/.local/share/nasacl)
// Otherwise:  os.UserConfigDir()/nasacl
func DefaultDataDir() (string, error) {
	if systemWide() {
		return SystemDataDir, nil
	}
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > NASACL_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config file value > NASACL_DATA_DIR >
// DefaultDataDir.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	return DefaultDataDir()
}
