package diskusage

import (
	"io/fs"
	"syscall"
	"time"
)

// birthTime reads the creation time from the stat birthtime field.
func birthTime(_ string, info fs.FileInfo) (time.Time, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, false
	}

	return time.Unix(stat.Birthtimespec.Sec, stat.Birthtimespec.Nsec), true
}
