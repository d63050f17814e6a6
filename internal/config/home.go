package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv names the environment variable that overrides the home directory.
const HomeEnv = "XHSASSIST_HOME"

// HomeDirName is the directory created under the project root.
const HomeDirName = ".xhsassist"

// GetHome returns the xhsassist home directory
// Priority order:
//  1. XHSASSIST_HOME environment variable (if set)
//  2. .xhsassist under the current working directory
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	return GetHomeWithRoot("")
}

// GetHomeWithRoot is GetHome with an explicit root used instead of the
// working directory.
func GetHomeWithRoot(root string) (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		if err := os.MkdirAll(home, 0755); err != nil {
			return "", fmt.Errorf("create home directory: %w", err)
		}
		return home, nil
	}

	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		root = cwd
	}

	home := filepath.Join(root, HomeDirName)
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create home directory: %w", err)
	}
	return home, nil
}

// EnsureDir creates the parent directory of path.
func EnsureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	return nil
}
