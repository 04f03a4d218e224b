package diskusage

import "fmt"

// sizeUnits are the labels used by HumanSize, each 1024 times the previous.
//
//nolint:gochecknoglobals // Lookup table
var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// HumanSize renders a byte count with two decimals and a base-1024 unit, e.g. "1.46 MB".
func HumanSize(size uint64) string {
	value := float64(size)
	unit := 0

	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	return fmt.Sprintf("%.2f %s", value, sizeUnits[unit])
}
