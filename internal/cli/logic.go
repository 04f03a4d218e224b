package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/idelchi/diskscope/internal/config"
	"github.com/idelchi/diskscope/internal/diskusage"
)

// itemFilter restricts the reported item kinds.
type itemFilter struct {
	filesOnly bool
	dirsOnly  bool
}

func (f itemFilter) apply(items []diskusage.FileSystemItem) []diskusage.FileSystemItem {
	if !f.filesOnly && !f.dirsOnly {
		return items
	}

	kept := items[:0]

	for _, item := range items {
		if item.IsFile == f.filesOnly {
			kept = append(kept, item)
		}
	}

	return kept
}

type analyzeRequest struct {
	cfg    *config.Config
	log    *zap.Logger
	path   string
	filter itemFilter
	stdout io.Writer
	stderr io.Writer
}

// isTerminal reports whether v is a file attached to a terminal.
//
//nolint:gochecknoglobals // Replaced in tests
var isTerminal = func(v any) bool {
	f, ok := v.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func analyze(ctx context.Context, req analyzeRequest) error {
	sizeLimit, err := req.cfg.SizeLimit()
	if err != nil {
		return err
	}

	enableProgress := strings.ToLower(req.cfg.Output) != "json" &&
		!req.log.Core().Enabled(zapcore.DebugLevel) &&
		isTerminal(req.stderr)

	opts := req.cfg.ScanOptions()

	var line *progressLine

	if enableProgress {
		line = &progressLine{w: req.stderr}

		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(req.stderr, "\033[?25l")
		defer fmt.Fprint(req.stderr, "\033[?25h")

		opts.OnProgress = line.draw
	}

	result, err := diskusage.NewScanner(opts, req.log).Analyze(ctx, req.path, sizeLimit)

	if line != nil {
		line.clear()
	}

	if err != nil {
		return err
	}

	result.Items = req.filter.apply(result.Items)
	diskusage.SortBySize(result.Items)

	switch strings.ToLower(req.cfg.Output) {
	case "json":
		return PrintJSON(result, req.stdout)
	case "table":
		return PrintTable(result, req.stdout)
	default:
		return fmt.Errorf("unknown output format: %s", req.cfg.Output)
	}
}

// progressLine redraws a single status line. Draws after clear are dropped.
type progressLine struct {
	mu      sync.Mutex
	w       io.Writer
	stopped bool
}

func (p *progressLine) draw(progress diskusage.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}

	msg := fmt.Sprintf("Scanning… %s/%s entries, %s matched",
		humanize.Comma(progress.Processed),
		humanize.Comma(progress.Entries),
		humanize.IBytes(progress.MatchedBytes))
	fmt.Fprintf(p.w, "\r\033[2K%s\r", msg)
}

func (p *progressLine) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopped = true

	fmt.Fprint(p.w, "\r\033[2K\r")
}

type deleteRequest struct {
	log    *zap.Logger
	path   string
	yes    bool
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// errNotConfirmed is returned when deletion needs a confirmation that cannot be asked for.
var errNotConfirmed = errors.New("refusing to delete without --yes on non-interactive input")

func remove(req deleteRequest) error {
	if !req.yes {
		if !isTerminal(req.stdin) {
			return fmt.Errorf("%w: %s", errNotConfirmed, req.path)
		}

		ok, err := confirm(req.stdin, req.stderr, fmt.Sprintf("Delete %q and everything below it? [y/N] ", req.path))
		if err != nil {
			return err
		}

		if !ok {
			fmt.Fprintln(req.stderr, "Aborted.")

			return nil
		}
	}

	if err := diskusage.DeletePath(req.path); err != nil {
		return err
	}

	req.log.Info("deleted path", zap.String("path", req.path))

	_, err := fmt.Fprintf(req.stdout, "Deleted %s\n", req.path)

	return err
}

// confirm asks question on w and reads a yes/no answer from r.
func confirm(r io.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprint(w, question)

	answer, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
