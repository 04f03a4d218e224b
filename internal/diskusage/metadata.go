package diskusage

import (
	"os"
	"time"
)

// Metadata holds the size and timestamps of a single entry.
//
// A field that cannot be read holds its default instead: 0 for Size and the
// time of the lookup for Created and Modified.
type Metadata struct {
	Size     uint64
	Created  time.Time
	Modified time.Time
}

// now is replaceable in tests.
//
//nolint:gochecknoglobals // Test seam
var now = time.Now

// Stat returns the metadata of path, following symlinks.
// Failures are never returned: the affected fields fall back to their defaults.
func Stat(path string) Metadata {
	fallback := now()

	meta := Metadata{Created: fallback, Modified: fallback}

	info, err := os.Stat(path)
	if err != nil {
		return meta
	}

	if info.Size() > 0 {
		meta.Size = uint64(info.Size())
	}

	meta.Modified = info.ModTime()

	if created, ok := birthTime(path, info); ok {
		meta.Created = created
	}

	return meta
}
