package diskusage

import (
	"io/fs"
	"syscall"
	"time"
)

// birthTime reads the creation time from the file attribute data.
func birthTime(_ string, info fs.FileInfo) (time.Time, bool) {
	data, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, false
	}

	return time.Unix(0, data.CreationTime.Nanoseconds()), true
}
