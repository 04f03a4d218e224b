package diskusage

import (
	"sort"
	"time"
)

// FileSystemItem is a single reported file or directory.
type FileSystemItem struct {
	// Path is the absolute path as encountered during the walk.
	Path string `json:"path"`
	// Size is the file size, or the recursive total for a directory.
	Size uint64 `json:"size"`
	// SizeStr is the human-readable rendering of Size.
	SizeStr string `json:"size_str"`
	// CreationDate is the best-effort creation time.
	CreationDate time.Time `json:"creation_date"`
	// ModifiedDate is the best-effort last modification time.
	ModifiedDate time.Time `json:"modified_date"`
	// IsFile is true for files and false for directories.
	IsFile bool `json:"is_file"`
}

// newItem builds an item whose SizeStr always matches size.
func newItem(path string, size uint64, meta Metadata, isFile bool) FileSystemItem {
	return FileSystemItem{
		Path:         path,
		Size:         size,
		SizeStr:      HumanSize(size),
		CreationDate: meta.Created,
		ModifiedDate: meta.Modified,
		IsFile:       isFile,
	}
}

// SortBySize orders items largest first, breaking ties by path.
func SortBySize(items []FileSystemItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Size != items[j].Size {
			return items[i].Size > items[j].Size
		}

		return items[i].Path < items[j].Path
	})
}
