// Package storage provides the on-disk persistence layer: platform data
// directories and a BadgerDB key-value store used for the tablebase cache.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "kingfisher"

// DataDir returns the platform data directory for the engine, creating it
// if needed.
//
//	macOS:   ~/Library/Application Support/kingfisher/
//	Linux:   $XDG_DATA_HOME/kingfisher/ or ~/.local/share/kingfisher/
//	Windows: %APPDATA%/kingfisher/
func DataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, "AppData", "Roaming")
		}

	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".local", "share")
		}
	}

	dir := filepath.Join(baseDir, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DatabaseDir returns the directory holding the BadgerDB database.
func DatabaseDir() (string, error) {
	return subDir("db")
}

// SyzygyDir returns the directory holding downloaded tablebase files.
func SyzygyDir() (string, error) {
	return subDir("syzygy")
}

func subDir(name string) (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(dataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
