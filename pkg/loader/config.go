// Package loader runs the per-chromosome conversions: it resolves
// chromosome lengths, reads records, rasterizes or encodes them and hands
// finished arrays to a sink, one worker per chromosome at a time.
package loader

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"

	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// Size units
const (
	KB = 1024
	MB = 1024 * KB
	GB = 1024 * MB
)

// ErrConfig marks configuration errors detected before any I/O
var ErrConfig = errors.New("invalid configuration")

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// SystemMemory holds system memory information
type SystemMemory struct {
	Total     int64
	Available int64
}

// DetectMemory returns system memory, falling back to 16 GB total /
// 12 GB available when detection fails
func DetectMemory() SystemMemory {
	total, available := systemMemory()
	if total == 0 {
		total = 16 * GB
		available = 12 * GB
	}
	return SystemMemory{Total: total, Available: available}
}

// DetectWorkers returns the default worker count
func DetectWorkers() int {
	if n := physicalCores(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Config holds the resource settings shared by every conversion
type Config struct {
	// Chromosomes processed concurrently (default: physical cores)
	Workers int

	// Upper bound on the bytes of arrays held at once across workers
	// (default: half of available RAM). Workers are reduced to fit.
	MemoryBudget int64

	// BGZF decompression goroutines per BAM reader
	ReadThreads int

	// Array payload compression: "zstd" or "none", level 1-3
	Compression      string
	CompressionLevel int

	memory SystemMemory
}

// NewConfig creates a Config with smart defaults
func NewConfig() *Config {
	mem := DetectMemory()
	return &Config{
		Workers:          DetectWorkers(),
		MemoryBudget:     mem.Available / 2,
		ReadThreads:      1,
		Compression:      store.CompressionZstd,
		CompressionLevel: 2,
		memory:           mem,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return configError("workers must be >= 1")
	}
	if c.ReadThreads < 1 {
		return configError("read threads must be >= 1")
	}
	if c.MemoryBudget <= 0 {
		return configError("memory budget must be positive")
	}
	switch c.Compression {
	case store.CompressionZstd, store.CompressionNone:
	default:
		return configError("unknown compression %q (none, zstd)", c.Compression)
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 3 {
		return configError("compression level must be 1-3")
	}
	return nil
}

// WorkersFor caps Workers so that workers * arrayBytes stays within the
// memory budget, never below one worker
func (c *Config) WorkersFor(arrayBytes int64, jobs int) int {
	workers := c.Workers
	if arrayBytes > 0 {
		if fit := c.MemoryBudget / arrayBytes; fit < int64(workers) {
			workers = int(fit)
		}
	}
	if workers > jobs {
		workers = jobs
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// WriterOptions returns the store options matching the configuration
func (c *Config) WriterOptions() store.WriterOptions {
	return store.WriterOptions{
		Compression:      c.Compression,
		CompressionLevel: c.CompressionLevel,
		CreatedBy:        "genome-loader",
	}
}

// ShowConfig prints the effective configuration
func (c *Config) ShowConfig(w io.Writer) {
	mem := c.memory
	if mem.Total == 0 {
		mem = DetectMemory()
	}

	fmt.Fprintf(w, "System Information:\n")
	fmt.Fprintf(w, "  Total RAM: %.1f GB\n", float64(mem.Total)/float64(GB))
	fmt.Fprintf(w, "  Available RAM: %.1f GB\n", float64(mem.Available)/float64(GB))
	fmt.Fprintf(w, "  CPU cores: %d logical, %d physical\n", runtime.NumCPU(), physicalCores())
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  Workers: %d\n", c.Workers)
	fmt.Fprintf(w, "  Memory budget: %.1f GB\n", float64(c.MemoryBudget)/float64(GB))
	fmt.Fprintf(w, "  Read threads: %d\n", c.ReadThreads)
	fmt.Fprintf(w, "  Compression: %s (level %d)\n", c.Compression, c.CompressionLevel)
	fmt.Fprintf(w, "\n")
}

// ParseSize parses a size string (e.g. "512M", "8G") to bytes
func ParseSize(sizeStr string) (int64, error) {
	sizeStr = strings.ToUpper(strings.TrimSpace(sizeStr))
	sizeStr = strings.TrimSuffix(sizeStr, "B")

	var multiplier int64 = 1
	switch {
	case strings.HasSuffix(sizeStr, "K"):
		multiplier = KB
	case strings.HasSuffix(sizeStr, "M"):
		multiplier = MB
	case strings.HasSuffix(sizeStr, "G"):
		multiplier = GB
	}
	if multiplier > 1 {
		sizeStr = sizeStr[:len(sizeStr)-1]
	}

	value, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || value <= 0 {
		return 0, configError("invalid size: %s", sizeStr)
	}
	return value * multiplier, nil
}
