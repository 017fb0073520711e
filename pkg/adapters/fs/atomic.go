package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempFilePrefix marks in-flight atomic writes; listings and the watcher skip them.
const TempFilePrefix = "quire-tmp-"

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return writeFileAtomicThen(filename, data, perm, nil)
}

// writeFileAtomicThen is writeFileAtomic with a hook that sees the final
// file info before the rename makes the file visible. A rename keeps the
// mtime, so the hook can index the file before any watcher hears of it.
func writeFileAtomicThen(filename string, data []byte, perm os.FileMode, beforeRename func(os.FileInfo)) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}

	if beforeRename != nil {
		info, err := os.Stat(tmp.Name())
		if err != nil {
			return fmt.Errorf("failed to stat temp file: %w", err)
		}
		beforeRename(info)
	}

	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
