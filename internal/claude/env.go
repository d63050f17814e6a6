package claude

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	tmpDirOnce sync.Once
	tmpDir     string
)

// CleanTmpDir returns a private temp directory for claude CLI runs. Editor
// socket files in the shared TMPDIR are known to crash the CLI when
// --settings is passed. Falls back to os.TempDir if it cannot be created.
func CleanTmpDir() string {
	tmpDirOnce.Do(func() {
		dir := filepath.Join(os.TempDir(), "xhsassist-claude")
		if err := os.MkdirAll(dir, 0755); err != nil {
			dir = os.TempDir()
		}
		tmpDir = dir
	})
	return tmpDir
}

// cliEnv is the environment override passed to every claude CLI run.
func cliEnv() map[string]string {
	return map[string]string{"TMPDIR": CleanTmpDir()}
}
