// Package config handles configuration loading and validation for justcalld.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// platformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/justcall/
//   - Linux:   ~/.local/share/justcall/
//   - Windows: %APPDATA%\justcall\
//
// Falls back to ~/.justcall if platform detection fails.
func platformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSDataDir()
	case "linux":
		if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
			return filepath.Join(xdgData, "justcall")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "justcall")
	case "windows":
		return windowsDataDir()
	default:
		return fallbackDataDir()
	}
}

// platformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/justcall/
//   - Linux:   ~/.config/justcall/
//   - Windows: %APPDATA%\justcall\
func platformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return macOSDataDir() // macOS uses same dir for config and data
	case "linux":
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "justcall")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "justcall")
	case "windows":
		return windowsDataDir() // Windows uses same dir for config and data
	default:
		return fallbackDataDir()
	}
}

func macOSDataDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, "Library", "Application Support", "justcall")
}

func windowsDataDir() string {
	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "justcall")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "AppData", "Roaming", "justcall")
}

func fallbackDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".justcall")
}
