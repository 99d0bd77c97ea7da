package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	dirName = ".todoload"
)

var (
	// ConfigDir is the global configuration directory (~/.todoload)
	ConfigDir string

	// DatabasePath is the SQLite database file holding run history
	DatabasePath string
)

// Initialize sets up the configuration directory.
// It creates ~/.todoload/ if it doesn't exist
func Initialize() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return InitializeAt(filepath.Join(homeDir, dirName))
}

// InitializeAt is Initialize rooted at dir instead of the home directory
func InitializeAt(dir string) error {
	ConfigDir = dir
	DatabasePath = filepath.Join(ConfigDir, "todoload.db")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}
	return nil
}

// ResolveDatabasePath returns override when set, else DatabasePath.
// The parent directory of an override is created on demand.
func ResolveDatabasePath(override string) (string, error) {
	if override == "" {
		if DatabasePath == "" {
			return "", fmt.Errorf("config not initialized")
		}
		return DatabasePath, nil
	}
	if override == ":memory:" {
		return override, nil
	}

	if err := os.MkdirAll(filepath.Dir(override), DirPermissions); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", override, err)
	}
	return override, nil
}
