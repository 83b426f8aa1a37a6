package loader

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scttfrdmn/genome-loader-go/pkg/bam"
	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// CoverageOptions configures WriteCoverage
type CoverageOptions struct {
	Chroms         []string // empty selects every reference in header order
	MinMapQ        int
	MinBaseQuality int
}

// WriteCoverage counts the aligned alleles of each selected chromosome
// into a [6, length] matrix with rows A, C, G, T, N and other
func WriteCoverage(ctx context.Context, cfg *Config, input string, opts CoverageOptions, sink Sink) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	resolver, err := bamResolver(cfg, input, opts.Chroms, nil)
	if err != nil {
		return nil, err
	}
	chroms, failed := resolver.Resolve()

	sink.SetAttr("id", DatasetCoverage)

	workers := cfg.WorkersFor(largest(chroms)*4*int64(raster.NumAlleleRows), len(chroms))
	log.WithFields(log.Fields{
		"input":   input,
		"chroms":  len(chroms),
		"workers": workers,
	}).Info("Writing allele coverage")

	results := runChroms(ctx, chroms, workers, func(ctx context.Context, chrom Chrom) ChromResult {
		return writeCoverage(cfg, input, chrom, opts, sink)
	})

	return &Report{
		Results: merge(resolver.Chroms(), results, failed),
		Elapsed: time.Since(start),
	}, nil
}

func writeCoverage(cfg *Config, input string, chrom Chrom, opts CoverageOptions, sink Sink) ChromResult {
	reader, err := bam.Open(input, bam.Options{Threads: cfg.ReadThreads, MinMapQ: opts.MinMapQ})
	if err != nil {
		return ChromResult{Err: fmt.Errorf("failed to open alignments: %w", err)}
	}
	defer reader.Close()

	calls, err := reader.BaseCalls(chrom.Name, bam.CallFilter{MinBaseQuality: opts.MinBaseQuality})
	if err != nil {
		return ChromResult{Err: err}
	}
	matrix, err := raster.RasterizeAlleles(calls, chrom.Length)
	if err != nil {
		return ChromResult{Err: err}
	}

	res := ChromResult{Stats: matrix.Stats}
	arr := store.NewUint32Array(matrix.Counts, raster.NumAlleleRows, matrix.Length)
	if err := sink.WriteGroup(chrom.Name, DatasetCoverage, arr, store.Attrs{"length": matrix.Length}); err != nil {
		res.Err = err
	}
	return res
}
