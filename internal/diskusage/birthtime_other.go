//go:build !linux && !darwin && !windows

package diskusage

import (
	"io/fs"
	"time"
)

// birthTime is unsupported on this platform.
func birthTime(_ string, _ fs.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
