package loader

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scttfrdmn/genome-loader-go/pkg/encode"
	"github.com/scttfrdmn/genome-loader-go/pkg/fasta"
	"github.com/scttfrdmn/genome-loader-go/pkg/store"
)

// Dataset names
const (
	DatasetSequence = "sequence"
	DatasetOneHot   = "onehot"
	DatasetDepth    = "depth"
	DatasetCoverage = "coverage"
)

// SequenceOptions configures WriteSequence
type SequenceOptions struct {
	Chroms     []string // empty selects every sequence in file order
	Encode     bool     // one-hot encode instead of storing raw bytes
	Spec       encode.Spec
	IgnoreCase bool
}

// WriteSequence stores each selected FASTA sequence as a raw byte array,
// or as a one-hot matrix of shape [length, len(spec)] when Encode is set
func WriteSequence(ctx context.Context, cfg *Config, input string, opts SequenceOptions, sink Sink) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	index, err := fasta.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference: %w", err)
	}
	resolver, err := NewResolver(opts.Chroms, nil, index)
	index.Close()
	if err != nil {
		return nil, err
	}
	chroms, failed := resolver.Resolve()

	id, width := DatasetSequence, 1
	if opts.Encode {
		id, width = DatasetOneHot, opts.Spec.Len()
		sink.SetAttr("encode_spec", opts.Spec.Symbols())
	}
	sink.SetAttr("id", id)

	workers := cfg.WorkersFor(largest(chroms)*int64(width), len(chroms))
	log.WithFields(log.Fields{
		"input":   input,
		"dataset": id,
		"chroms":  len(chroms),
		"workers": workers,
	}).Info("Writing sequence data")

	results := runChroms(ctx, chroms, workers, func(ctx context.Context, chrom Chrom) ChromResult {
		return writeSequence(input, chrom, opts, sink)
	})

	return &Report{
		Results: merge(resolver.Chroms(), results, failed),
		Elapsed: time.Since(start),
	}, nil
}

func writeSequence(input string, chrom Chrom, opts SequenceOptions, sink Sink) ChromResult {
	reader, err := fasta.Open(input)
	if err != nil {
		return ChromResult{Err: fmt.Errorf("failed to open reference: %w", err)}
	}
	defer reader.Close()

	seq, err := reader.Sequence(chrom.Name)
	if err != nil {
		return ChromResult{Err: err}
	}
	if len(seq) != chrom.Length {
		return ChromResult{Err: fmt.Errorf("sequence has %d bases, expected %d", len(seq), chrom.Length)}
	}

	name := DatasetSequence
	arr := store.NewUint8Array(seq, len(seq))
	if opts.Encode {
		oh := encode.Encode(seq, opts.Spec, opts.IgnoreCase)
		name = DatasetOneHot
		arr = store.NewUint8Array(oh.Data, oh.Rows, oh.Cols)
	}

	attrs := store.Attrs{"length": len(seq)}
	if err := sink.WriteGroup(chrom.Name, name, arr, attrs); err != nil {
		return ChromResult{Err: err}
	}
	return ChromResult{}
}

// largest returns the length of the longest chromosome
func largest(chroms []Chrom) int64 {
	var n int64
	for _, c := range chroms {
		if int64(c.Length) > n {
			n = int64(c.Length)
		}
	}
	return n
}

// merge orders processed and unresolved results by the selection order
func merge(order []string, done []ChromResult, failed []ChromResult) []ChromResult {
	byName := make(map[string]ChromResult, len(done)+len(failed))
	for _, res := range failed {
		byName[res.Chrom] = res
	}
	for _, res := range done {
		byName[res.Chrom] = res
	}
	out := make([]ChromResult, 0, len(order))
	for _, name := range order {
		if res, ok := byName[name]; ok {
			out = append(out, res)
		}
	}
	return out
}
