package loader

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scttfrdmn/genome-loader-go/pkg/bam"
	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// DepthOptions configures WriteDepth
type DepthOptions struct {
	Chroms  []string // empty selects every reference in header order
	Lengths []int    // optional, paired with Chroms
	Mode    bam.FragmentMode
	MinMapQ int
	Depth   raster.DepthOptions
}

// WriteDepth rasterizes the fragments of each selected chromosome into a
// per-base depth array, storing the per-chromosome sum and the total
func WriteDepth(ctx context.Context, cfg *Config, input string, opts DepthOptions, sink Sink) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = bam.Paired
	}
	mode, err := bam.ParseFragmentMode(string(opts.Mode))
	if err != nil {
		return nil, configError("%v", err)
	}
	opts.Mode = mode
	if opts.Depth.Method == "" {
		opts.Depth.Method = raster.Cutsite
	}
	method, err := raster.ParseCountMethod(string(opts.Depth.Method))
	if err != nil {
		return nil, configError("%v", err)
	}
	opts.Depth.Method = method
	start := time.Now()

	resolver, err := bamResolver(cfg, input, opts.Chroms, opts.Lengths)
	if err != nil {
		return nil, err
	}
	chroms, failed := resolver.Resolve()

	sink.SetAttr("id", DatasetDepth)
	sink.SetAttr("count_method", string(opts.Depth.Method))

	workers := cfg.WorkersFor(largest(chroms)*4, len(chroms))
	log.WithFields(log.Fields{
		"input":   input,
		"method":  opts.Depth.Method,
		"tn5":     opts.Depth.OffsetTn5,
		"chroms":  len(chroms),
		"workers": workers,
	}).Info("Writing fragment depth")

	var total atomic.Int64
	results := runChroms(ctx, chroms, workers, func(ctx context.Context, chrom Chrom) ChromResult {
		res, sum := writeDepth(cfg, input, chrom, opts, sink)
		if res.Err == nil {
			total.Add(sum)
		}
		return res
	})
	sink.SetAttr("total_sum", total.Load())

	return &Report{
		Results:  merge(resolver.Chroms(), results, failed),
		TotalSum: total.Load(),
		Elapsed:  time.Since(start),
	}, nil
}

func writeDepth(cfg *Config, input string, chrom Chrom, opts DepthOptions, sink Sink) (ChromResult, int64) {
	reader, err := bam.Open(input, bam.Options{Threads: cfg.ReadThreads, MinMapQ: opts.MinMapQ})
	if err != nil {
		return ChromResult{Err: fmt.Errorf("failed to open alignments: %w", err)}, 0
	}
	defer reader.Close()

	frags, err := reader.Fragments(chrom.Name, opts.Mode)
	if err != nil {
		return ChromResult{Err: err}, 0
	}
	depth, err := raster.Rasterize(frags, chrom.Length, opts.Depth)
	if err != nil {
		return ChromResult{Err: err, Rejected: frags.Rejected}, 0
	}

	res := ChromResult{Stats: depth.Stats, Rejected: frags.Rejected}
	attrs := store.Attrs{"length": depth.Len(), "sum": depth.Sum()}
	if err := sink.WriteGroup(chrom.Name, DatasetDepth, store.NewUint32Array(depth.Counts, depth.Len()), attrs); err != nil {
		res.Err = err
		return res, 0
	}
	return res, depth.Sum()
}

// bamResolver builds a resolver over the BAM header. The header is only
// read when some chromosome lacks an explicit length.
func bamResolver(cfg *Config, input string, chroms []string, lens []int) (*Resolver, error) {
	if len(chroms) > 0 && len(lens) == len(chroms) {
		return NewResolver(chroms, lens, nil)
	}
	reader, err := bam.Open(input, bam.Options{Threads: cfg.ReadThreads})
	if err != nil {
		return nil, fmt.Errorf("failed to open alignments: %w", err)
	}
	defer reader.Close()
	return NewResolver(chroms, lens, newHeaderIndex(reader.References()))
}
