package bytes

import "fmt"

var memUnits = [...]string{"B", "KB", "MB", "GB", "TB"}

// FmtMem renders a byte count as the two most significant units, e.g. "10MB 512KB".
func FmtMem(n uint64) string {
	const step = 1024

	unit := 0
	div := uint64(1)
	for unit < len(memUnits)-1 && n >= div*step {
		div *= step
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%dB", n)
	}
	return fmt.Sprintf("%d%s %d%s", n/div, memUnits[unit], (n%div)/(div/step), memUnits[unit-1])
}
