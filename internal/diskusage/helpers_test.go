package diskusage

import (
	"os"
	"path/filepath"
	"testing"
)

func createFile(t *testing.T, path string, size int64) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("Failed to set file size: %v", err)
	}
}

// tempRoot returns a fresh temporary directory with symlinks resolved, so
// paths compare equal to the ones reported by Analyze.
func tempRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}
	return root
}

// sampleTree builds:
//
//	root/a.bin          100
//	root/big.bin       5000
//	root/sub/c.bin     2000
//	root/sub/deep/d.bin 3000
//	root/empty/
func sampleTree(t *testing.T) string {
	t.Helper()
	root := tempRoot(t)
	createFile(t, filepath.Join(root, "a.bin"), 100)
	createFile(t, filepath.Join(root, "big.bin"), 5000)
	createFile(t, filepath.Join(root, "sub", "c.bin"), 2000)
	createFile(t, filepath.Join(root, "sub", "deep", "d.bin"), 3000)
	if err := os.Mkdir(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	return root
}

func itemsByPath(items []FileSystemItem) map[string]FileSystemItem {
	m := make(map[string]FileSystemItem, len(items))
	for _, it := range items {
		m[it.Path] = it
	}
	return m
}
