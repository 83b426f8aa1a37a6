//go:build !darwin && !linux

package loader

// physicalCores is unknown here; the caller falls back to runtime.NumCPU
func physicalCores() int {
	return 0
}

// systemMemory is unknown here; the caller falls back to defaults
func systemMemory() (total, available int64) {
	return 0, 0
}
