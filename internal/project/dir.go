package project

import (
	"os"
	"path/filepath"
)

// Dir returns the directory a path binds to: the path itself when it is an
// existing directory, otherwise its parent.
func Dir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return filepath.Clean(path)
	}
	return filepath.Dir(path)
}
