//go:build darwin

package loader

import "syscall"

// physicalCores returns the performance core count on Apple Silicon,
// the physical core count elsewhere, 0 when sysctl fails
func physicalCores() int {
	for _, name := range []string{"hw.perflevel0.physicalcpu", "hw.physicalcpu"} {
		if n := sysctlInt(name); n > 0 {
			return int(n)
		}
	}
	return 0
}

// systemMemory reports hw.memsize; available is estimated as 3/4 of it
func systemMemory() (total, available int64) {
	total = sysctlInt("hw.memsize")
	return total, total * 3 / 4
}

// syscall.Sysctl returns the raw little-endian value as a string
func sysctlInt(name string) int64 {
	raw, err := syscall.Sysctl(name)
	if err != nil {
		return 0
	}
	var v uint64
	for i := 0; i < len(raw) && i < 8; i++ {
		v |= uint64(raw[i]) << (uint(i) * 8)
	}
	return int64(v)
}
