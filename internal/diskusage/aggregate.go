package diskusage

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// FolderSize returns the sum of the sizes of all regular files below dir.
//
// The subtree is walked again independently of any outer walk and the files
// are sized in parallel. Files whose size cannot be read count as 0.
func (w *Walker) FolderSize(ctx context.Context, dir string) (uint64, error) {
	entries, err := w.Walk(ctx, dir)
	if err != nil {
		return 0, err
	}

	files := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsRegular() {
			files = append(files, e.Path)
		}
	}

	return sumFileSizes(ctx, files, w.workers)
}

// sumFileSizes sizes files on up to workers goroutines. Each goroutine owns
// one slot of partial, so the partial sums need no locking.
func sumFileSizes(ctx context.Context, files []string, workers int) (uint64, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if len(files) == 0 {
		return 0, nil
	}

	chunks := min(workers, len(files))
	chunkSize := (len(files) + chunks - 1) / chunks
	partial := make([]uint64, chunks)

	g, ctx := errgroup.WithContext(ctx)

	for i := range chunks {
		lo := i * chunkSize
		hi := min(lo+chunkSize, len(files))

		g.Go(func() error {
			for _, path := range files[lo:hi] {
				if err := ctx.Err(); err != nil {
					return err
				}

				partial[i] += Stat(path).Size
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total uint64
	for _, p := range partial {
		total += p
	}

	return total, nil
}

// directoryTotals computes the total of every directory in entries in one
// pass: each file size is added to its parent, then directory totals are
// folded into their parents deepest first.
//
// sizes[i] is the size of entries[i]; only regular files contribute.
func directoryTotals(root string, entries []Entry, sizes []uint64) map[string]uint64 {
	totals := make(map[string]uint64)
	dirs := make([]string, 0)

	for _, e := range entries {
		if e.IsDir() {
			totals[e.Path] = 0
			dirs = append(dirs, e.Path)
		}
	}

	for i, e := range entries {
		if !e.IsRegular() || e.Path == root {
			continue
		}

		totals[filepath.Dir(e.Path)] += sizes[i]
	}

	sort.Slice(dirs, func(i, j int) bool {
		return calculateDepth(dirs[i], root) > calculateDepth(dirs[j], root)
	})

	for _, dir := range dirs {
		if dir == root {
			continue
		}

		parent := filepath.Dir(dir)
		if _, ok := totals[parent]; ok {
			totals[parent] += totals[dir]
		}
	}

	return totals
}
