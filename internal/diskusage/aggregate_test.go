package diskusage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestWalkerFolderSize(t *testing.T) {
	root := sampleTree(t)
	walker := NewWalker(3, nil)

	tests := []struct {
		name string
		dir  string
		want uint64
	}{
		{"root", root, 10100},
		{"sub counts nested files once", filepath.Join(root, "sub"), 5000},
		{"deep", filepath.Join(root, "sub", "deep"), 3000},
		{"empty", filepath.Join(root, "empty"), 0},
		{"missing", filepath.Join(root, "missing"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := walker.FolderSize(context.Background(), tt.dir)
			if tt.name == "missing" {
				if err == nil {
					t.Error("FolderSize() error = nil, want error for missing directory")
				}
				return
			}
			if err != nil {
				t.Fatalf("FolderSize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FolderSize(%q) = %d, want %d", tt.dir, got, tt.want)
			}
		})
	}
}

func TestSumFileSizesIsDeterministic(t *testing.T) {
	root := tempRoot(t)
	var files []string
	var want uint64
	for i := range 37 {
		path := filepath.Join(root, "f", string(rune('a'+i%26))+string(rune('a'+i/26))+".bin")
		createFile(t, path, int64(i*13))
		files = append(files, path)
		want += uint64(i * 13)
	}

	for _, workers := range []int{1, 2, 5, 64} {
		got, err := sumFileSizes(context.Background(), files, workers)
		if err != nil {
			t.Fatalf("sumFileSizes() error = %v", err)
		}
		if got != want {
			t.Errorf("sumFileSizes(workers=%d) = %d, want %d", workers, got, want)
		}
	}
}

func TestDirectoryTotalsMatchesFolderSize(t *testing.T) {
	root := sampleTree(t)
	walker := NewWalker(2, nil)

	entries, err := walker.Walk(context.Background(), root)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	sizes := make([]uint64, len(entries))
	for i, e := range entries {
		if e.IsRegular() {
			sizes[i] = Stat(e.Path).Size
		}
	}

	totals := directoryTotals(root, entries, sizes)

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		want, err := walker.FolderSize(context.Background(), e.Path)
		if err != nil {
			t.Fatalf("FolderSize() error = %v", err)
		}
		if totals[e.Path] != want {
			t.Errorf("directoryTotals[%q] = %d, FolderSize = %d", e.Path, totals[e.Path], want)
		}
	}
}
