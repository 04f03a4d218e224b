package diskusage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// Entry is a single file or directory found by Walk.
type Entry struct {
	// Path is the path of the entry, rooted at the walked directory.
	Path string
	// Type is the type bits of the entry; symlinks are not followed.
	Type fs.FileMode
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type.IsDir() }

// IsRegular reports whether the entry is a regular file.
func (e Entry) IsRegular() bool { return e.Type.IsRegular() }

// Walker lists every entry below a root using parallel traversal.
type Walker struct {
	workers int
	log     *zap.Logger
}

// NewWalker creates a Walker. workers <= 0 selects fastwalk's default.
func NewWalker(workers int, log *zap.Logger) *Walker {
	if log == nil {
		log = zap.NewNop()
	}

	return &Walker{workers: workers, log: log}
}

// Walk returns root and all of its descendants in no particular order.
//
// Entries that cannot be read are skipped. Only a failure to stat root itself
// or a cancelled ctx is returned as an error.
//
//nolint:varnamelen // d is standard for DirEntry
func (w *Walker) Walk(ctx context.Context, root string) ([]Entry, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}

	entries := []Entry{{Path: root, Type: info.Mode().Type()}}
	if !info.IsDir() {
		return entries, nil
	}

	var mu sync.Mutex

	conf := &fastwalk.Config{
		Follow:     false, // Don't follow symlinks
		NumWorkers: w.workers,
	}

	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.Debug("skipping unreadable entry", zap.String("path", path), zap.Error(err))

			return nil // Silently skip errors
		}

		// Check cancellation periodically
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Root was recorded up front
		if path == root {
			return nil
		}

		mu.Lock()
		entries = append(entries, Entry{Path: path, Type: d.Type()})
		mu.Unlock()

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// calculateDepth returns the depth of a path relative to the root.
func calculateDepth(path, root string) int {
	relPath := strings.TrimPrefix(path, root)

	relPath = strings.TrimPrefix(relPath, string(filepath.Separator))
	if relPath == "" {
		return 0
	}

	return strings.Count(relPath, string(filepath.Separator)) + 1
}
