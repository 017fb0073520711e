package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by FindRoot when no vault marker exists
// between startDir and the filesystem root.
var ErrRootNotFound = errors.New("vault root not found")

// rootMarkers identify a vault directory.
var rootMarkers = []string{".quire", ".git", "quire.yaml"}

// FindRoot walks up from startDir to the nearest directory holding a
// vault marker and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}
