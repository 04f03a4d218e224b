package diskusage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// Strategy selects how directory totals are computed.
type Strategy string

const (
	// StrategyBottomUp sizes every entry once and folds file sizes up into their ancestors.
	StrategyBottomUp Strategy = "bottomup"
	// StrategyRewalk computes every directory total with FolderSize, walking its subtree again.
	StrategyRewalk Strategy = "rewalk"
)

// Strategies lists the accepted strategies.
//
//nolint:gochecknoglobals // Config constant
var Strategies = []Strategy{StrategyBottomUp, StrategyRewalk}

// ParseStrategy converts a name into a Strategy. The empty string selects StrategyBottomUp.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case "", StrategyBottomUp:
		return StrategyBottomUp, nil
	case StrategyRewalk:
		return StrategyRewalk, nil
	default:
		return "", fmt.Errorf("unknown strategy %q: must be one of %v", name, Strategies)
	}
}

// Progress is a point-in-time view of a running scan.
type Progress struct {
	// Entries is the number of entries found by the walk.
	Entries int64
	// Processed is the number of entries that have been evaluated.
	Processed int64
	// MatchedBytes is the sum of the sizes of the items reported so far.
	MatchedBytes uint64
}

// Options configures a Scanner.
type Options struct {
	// Workers bounds the number of concurrent workers (0 = number of CPUs).
	Workers int
	// Strategy selects how directory totals are computed.
	Strategy Strategy
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// OnProgress, if set, is called on every progress tick until the scan ends.
	OnProgress func(Progress)
}

// Result is the outcome of a completed scan.
type Result struct {
	// Root is the absolute path that was scanned.
	Root string `json:"root"`
	// Items are the entries whose size met the limit, in no particular order.
	Items []FileSystemItem `json:"items"`
	// Entries is the number of entries found by the walk.
	Entries int `json:"entries"`
	// Elapsed is the total time taken for the scan.
	Elapsed time.Duration `json:"elapsed"`
}

// Scanner reports files and directories whose size meets a limit.
type Scanner struct {
	opts   Options
	log    *zap.Logger
	walker *Walker
}

// NewScanner creates a Scanner. A nil logger discards all output.
func NewScanner(opts Options, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}

	if opts.Strategy == "" {
		opts.Strategy = StrategyBottomUp
	}

	return &Scanner{
		opts:   opts,
		log:    log,
		walker: NewWalker(opts.Workers, log),
	}
}

// AnalyzeDirectory scans root with default options and returns every file
// and directory whose size is at least sizeLimit.
func AnalyzeDirectory(ctx context.Context, root string, sizeLimit uint64) ([]FileSystemItem, error) {
	result, err := NewScanner(Options{}, nil).Analyze(ctx, root, sizeLimit)
	if err != nil {
		return nil, err
	}

	return result.Items, nil
}

// Analyze walks root and reports every regular file and directory whose size
// is at least sizeLimit. A directory's size is the sum of the sizes of all
// regular files below it.
//
// Entries that cannot be read are sized as 0 instead of failing the scan.
// A missing root yields an error wrapping ErrNotFound. The scan can be
// cancelled via ctx, in which case no items are returned.
func (s *Scanner) Analyze(ctx context.Context, root string, sizeLimit uint64) (*Result, error) {
	start := time.Now()

	root, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	s.log.Debug("scan started",
		zap.String("root", root),
		zap.Uint64("size_limit", sizeLimit),
		zap.String("strategy", string(s.opts.Strategy)),
		zap.Int("workers", s.opts.Workers))

	entries, err := s.walker.Walk(ctx, root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("analyzing %q: %w", root, ErrNotFound)
		}

		return nil, fmt.Errorf("walking %q: %w", root, err)
	}

	collector := newCollector(len(entries))

	// Create child context to ensure progress reporter cleanup
	reporterCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(reporterCtx, collector, int64(len(entries)), s.opts.OnProgress, s.opts.ProgressInterval)

	switch s.opts.Strategy {
	case StrategyRewalk:
		err = s.analyzeRewalk(ctx, entries, sizeLimit, collector)
	default:
		err = s.analyzeBottomUp(ctx, root, entries, sizeLimit, collector)
	}

	if err != nil {
		return nil, err
	}

	result := &Result{
		Root:    root,
		Items:   collector.finalize(),
		Entries: len(entries),
		Elapsed: time.Since(start),
	}

	s.log.Debug("scan finished",
		zap.String("root", root),
		zap.Int("entries", result.Entries),
		zap.Int("items", len(result.Items)),
		zap.Duration("elapsed", result.Elapsed))

	return result, nil
}

// resolveRoot makes root absolute, resolves symlinks and checks that it exists.
func resolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}

	// Normalize to native format to handle both C:/Path and C:\Path inputs
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	if _, err := os.Stat(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("analyzing %q: %w", abs, ErrNotFound)
		}

		return "", fmt.Errorf("accessing path %q: %w", abs, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks of %q: %w", abs, err)
	}

	return resolved, nil
}

// analyzeRewalk evaluates every entry independently; each directory total is
// computed by walking that directory again.
func (s *Scanner) analyzeRewalk(ctx context.Context, entries []Entry, sizeLimit uint64, c *collector) error {
	return s.forEach(ctx, len(entries), func(ctx context.Context, i int) error {
		entry := entries[i]
		meta := Stat(entry.Path)

		switch {
		case entry.IsRegular():
			if meta.Size >= sizeLimit {
				c.add(newItem(entry.Path, meta.Size, meta, true))

				return nil
			}
		case entry.IsDir():
			total, err := s.walker.FolderSize(ctx, entry.Path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}

				s.log.Debug("sizing directory failed", zap.String("path", entry.Path), zap.Error(err))
			}

			if total >= sizeLimit {
				c.add(newItem(entry.Path, total, meta, false))

				return nil
			}
		}

		c.done()

		return nil
	})
}

// analyzeBottomUp reads the metadata of every entry once, derives all
// directory totals from the file sizes and then applies the limit.
func (s *Scanner) analyzeBottomUp(ctx context.Context, root string, entries []Entry, sizeLimit uint64, c *collector) error {
	metas := make([]Metadata, len(entries))
	sizes := make([]uint64, len(entries))

	err := s.forEach(ctx, len(entries), func(_ context.Context, i int) error {
		metas[i] = Stat(entries[i].Path)
		if entries[i].IsRegular() {
			sizes[i] = metas[i].Size
		}

		return nil
	})
	if err != nil {
		return err
	}

	totals := directoryTotals(root, entries, sizes)

	return s.forEach(ctx, len(entries), func(_ context.Context, i int) error {
		entry := entries[i]

		switch {
		case entry.IsRegular():
			if sizes[i] >= sizeLimit {
				c.add(newItem(entry.Path, sizes[i], metas[i], true))

				return nil
			}
		case entry.IsDir():
			if total := totals[entry.Path]; total >= sizeLimit {
				c.add(newItem(entry.Path, total, metas[i], false))

				return nil
			}
		}

		c.done()

		return nil
	})
}

// forEach calls fn for indices [0, n) on at most Workers goroutines and waits
// for all of them. ctx is checked before every call.
func (s *Scanner) forEach(ctx context.Context, n int, fn func(context.Context, int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i := range n {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// gctx is cancelled by Wait; report the caller's ctx
	return ctx.Err()
}

// startProgressReporter invokes hook on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, entries int64, hook func(Progress), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				processed, matched := c.snapshot()
				hook(Progress{Entries: entries, Processed: processed, MatchedBytes: matched})
			case <-ctx.Done():
				return
			}
		}
	}()
}
