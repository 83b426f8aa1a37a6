package bam

import (
	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
)

// CallFilter selects which aligned bases become base calls
type CallFilter struct {
	// Bases below this phred quality are ignored. Deletions carry no
	// quality and are always kept.
	MinBaseQuality int
}

// BaseCallIterator walks the CIGAR of every read of one chromosome and
// yields one call per aligned reference base. It satisfies
// raster.BaseCallSource.
type BaseCallIterator struct {
	it     recordIterator
	filter CallFilter
	buf    []raster.BaseCall
	i      int
}

// BaseCalls returns the base calls of chrom
func (r *Reader) BaseCalls(chrom string, filter CallFilter) (*BaseCallIterator, error) {
	it, _, err := r.records(chrom)
	if err != nil {
		return nil, err
	}
	return &BaseCallIterator{it: it, filter: filter}, nil
}

func (b *BaseCallIterator) Next() bool {
	b.i++
	for b.i >= len(b.buf) {
		if !b.it.Next() {
			return false
		}
		b.buf = appendCalls(b.buf[:0], b.it.Record(), b.filter)
		b.i = 0
	}
	return true
}

func (b *BaseCallIterator) BaseCall() raster.BaseCall { return b.buf[b.i] }
func (b *BaseCallIterator) Err() error                { return b.it.Error() }

// appendCalls appends the base calls of one read. M, = and X emit the
// read base, D emits raster.DeletionMarker, the other operations emit
// nothing.
func appendCalls(calls []raster.BaseCall, rec *sam.Record, filter CallFilter) []raster.BaseCall {
	seq := rec.Seq.Expand()
	ref, query := rec.Pos, 0

	for _, op := range rec.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			for i := 0; i < n; i++ {
				q := query + i
				if q >= len(seq) {
					break
				}
				if filter.MinBaseQuality > 0 && q < len(rec.Qual) && int(rec.Qual[q]) < filter.MinBaseQuality {
					continue
				}
				calls = append(calls, raster.BaseCall{Pos: ref + i, Allele: seq[q]})
			}
		case sam.CigarDeletion:
			for i := 0; i < n; i++ {
				calls = append(calls, raster.BaseCall{Pos: ref + i, Allele: raster.DeletionMarker})
			}
		}
		consume := op.Type().Consumes()
		ref += n * consume.Reference
		query += n * consume.Query
	}

	return calls
}
