package resolver

import (
	"path/filepath"
	"strings"
)

// PathValidator restricts library paths to a set of directories.
// A validator with no directories allows everything.
type PathValidator struct {
	allowedDirs []string
}

func NewPathValidator(allowedDirs []string) PathValidator {
	cleaned := make([]string, 0, len(allowedDirs))
	for _, dir := range allowedDirs {
		if dir == "" {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(dir))
	}
	return PathValidator{allowedDirs: cleaned}
}

func (v PathValidator) IsAllowed(path string) bool {
	if len(v.allowedDirs) == 0 {
		return true
	}
	cleanPath := filepath.Clean(path)
	for _, allowed := range v.allowedDirs {
		if cleanPath == allowed || strings.HasPrefix(cleanPath, allowed+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
