package diskusage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DeletePath removes a file, or a directory together with everything below it.
//
// Directories are emptied depth-first: first the files they contain, then
// each subdirectory recursively, then the directory itself. Symlinks are
// removed as links and never followed. A missing path yields an error
// wrapping ErrNotFound. The first removal failure is returned as is and
// whatever was removed before it stays removed.
func DeletePath(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("deleting %q: %w", path, ErrNotFound)
		}

		return fmt.Errorf("accessing path %q: %w", path, err)
	}

	if !info.IsDir() {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("deleting file: %w", err)
		}

		return nil
	}

	if err := deleteTree(path); err != nil {
		return fmt.Errorf("deleting directory: %w", err)
	}

	return nil
}

// deleteTree removes the files of dir, then its subdirectories, then dir.
func deleteTree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	subdirs := make([]string, 0, len(entries))

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			subdirs = append(subdirs, path)

			continue
		}

		if err := os.Remove(path); err != nil {
			return err
		}
	}

	for _, sub := range subdirs {
		if err := deleteTree(sub); err != nil {
			return err
		}
	}

	return os.Remove(dir)
}
