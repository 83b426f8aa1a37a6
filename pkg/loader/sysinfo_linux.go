//go:build linux

package loader

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// physicalCores counts distinct (physical id, core id) pairs in
// /proc/cpuinfo. Returns 0 when the file cannot be parsed.
func physicalCores() int {
	file, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer file.Close()

	cores := make(map[[2]int]bool)
	socket, core := 0, -1

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			// blank line ends a processor block
			if core >= 0 {
				cores[[2]int{socket, core}] = true
			}
			socket, core = 0, -1
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			continue
		}
		switch strings.TrimSpace(key) {
		case "physical id":
			socket = n
		case "core id":
			core = n
		}
	}
	if core >= 0 {
		cores[[2]int{socket, core}] = true
	}

	return len(cores)
}

// systemMemory reads total and available memory from /proc/meminfo.
// Kernels without MemAvailable fall back to MemFree + Buffers + Cached.
func systemMemory() (total, available int64) {
	file, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer file.Close()

	values := make(map[string]int64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		values[strings.TrimSuffix(fields[0], ":")] = kb * KB
	}

	total = values["MemTotal"]
	available, ok := values["MemAvailable"]
	if !ok {
		available = values["MemFree"] + values["Buffers"] + values["Cached"]
	}
	return total, available
}
