package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scttfrdmn/genome-loader-go/pkg/loader"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// Flags shared by the write commands
var (
	outputPath       string
	outputDir        string
	outputName       string
	chroms           []string
	workers          int
	memoryBudget     string
	readThreads      int
	compression      string
	compressionLevel int
	showConfig       bool
)

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputPath, "output", "o", "",
		"Output dataset (path, s3:// or gs:// URI)")
	cmd.Flags().StringVarP(&outputDir, "directory", "d", "",
		"Output directory (dataset named after the input unless --name)")
	cmd.Flags().StringVarP(&outputName, "name", "n", "",
		"Dataset name if --directory given, ignored with --output")
	cmd.MarkFlagsMutuallyExclusive("output", "directory")
}

func addChromFlag(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&chroms, "chroms", "c", nil,
		"Chromosomes to write, comma separated or repeated (default: all)")
}

func addResourceFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&workers, "workers", 0,
		"Chromosomes processed in parallel (0 = auto-detect physical cores)")
	cmd.Flags().StringVar(&memoryBudget, "memory", "",
		"Memory budget for arrays in flight (e.g., 4G) - default: 50% of available RAM")
	cmd.Flags().IntVar(&readThreads, "threads", 1,
		"BAM decompression threads per worker")
	cmd.Flags().StringVar(&compression, "compression", store.CompressionZstd,
		"Compression algorithm: none, zstd")
	cmd.Flags().IntVar(&compressionLevel, "compression-level", 2,
		"Compression level: 1 (fastest) to 3 (best)")
	cmd.Flags().BoolVar(&showConfig, "show-config", false,
		"Show effective configuration (workers, memory budget) and exit")
}

// newConfig applies the resource flags to the detected defaults
func newConfig() (*loader.Config, error) {
	config := loader.NewConfig()
	if workers > 0 {
		config.Workers = workers
	}
	if memoryBudget != "" {
		size, err := loader.ParseSize(memoryBudget)
		if err != nil {
			return nil, fmt.Errorf("invalid memory budget: %w", err)
		}
		config.MemoryBudget = size
	}
	config.ReadThreads = readThreads
	config.Compression = compression
	config.CompressionLevel = compressionLevel

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// writeFunc runs one conversion into sink
type writeFunc func(ctx context.Context, config *loader.Config, sink loader.Sink) (*loader.Report, error)

// runWrite resolves the output, runs write and closes the dataset with
// its groups in processing order. Failed chromosomes are not written and
// make the command exit non-zero.
func runWrite(cmd *cobra.Command, input string, write writeFunc) error {
	config, err := newConfig()
	if err != nil {
		return err
	}
	if showConfig {
		config.ShowConfig(os.Stdout)
		return nil
	}

	location, err := resolveOutput(input, outputPath, outputDir, outputName)
	if err != nil {
		return err
	}

	writer, err := store.Create(location, config.WriterOptions())
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}
	log.WithField("output", location).Info("Writing dataset")

	report, err := write(cmd.Context(), config, writer)
	if err != nil {
		return err
	}
	report.Dataset = location

	if err := writer.Close(report.Written()...); err != nil {
		return fmt.Errorf("failed to finalize dataset: %w", err)
	}
	report.Print(os.Stdout)
	return report.Err()
}
