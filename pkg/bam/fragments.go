package bam

import (
	"fmt"
	"strings"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/genome-loader-go/pkg/raster"
)

// FragmentMode selects the counting unit
type FragmentMode string

const (
	// Paired yields one fragment per properly paired template, taken from
	// the leftmost mate: [POS, POS+TLEN)
	Paired FragmentMode = "paired"
	// Single yields the aligned span of every read
	Single FragmentMode = "single"
)

// ParseFragmentMode validates a mode name
func ParseFragmentMode(s string) (FragmentMode, error) {
	switch FragmentMode(strings.ToLower(s)) {
	case Paired:
		return Paired, nil
	case Single:
		return Single, nil
	}
	return "", fmt.Errorf("invalid fragment mode %q (choose from paired, single)", s)
}

// FragmentIterator converts the reads of one chromosome into fragments.
// It satisfies raster.FragmentSource.
type FragmentIterator struct {
	it   recordIterator
	ref  *sam.Reference
	mode FragmentMode
	frag raster.Fragment

	// Rejected counts reads that could not be assigned a fragment on
	// this chromosome (mate elsewhere, mate unmapped, improper pair)
	Rejected int
}

// Fragments returns the fragments of chrom
func (r *Reader) Fragments(chrom string, mode FragmentMode) (*FragmentIterator, error) {
	if mode == "" {
		mode = Paired
	}
	if _, err := ParseFragmentMode(string(mode)); err != nil {
		return nil, err
	}
	it, ref, err := r.records(chrom)
	if err != nil {
		return nil, err
	}
	return &FragmentIterator{it: it, ref: ref, mode: mode}, nil
}

func (f *FragmentIterator) Next() bool {
	for f.it.Next() {
		frag, ok, counted := fragmentOf(f.it.Record(), f.mode)
		if ok {
			f.frag = frag
			return true
		}
		if counted {
			f.Rejected++
		}
	}
	return false
}

func (f *FragmentIterator) Fragment() raster.Fragment { return f.frag }
func (f *FragmentIterator) Err() error                { return f.it.Error() }

func strandOf(rec *sam.Record) raster.Strand {
	if rec.Flags&sam.Reverse != 0 {
		return raster.Reverse
	}
	return raster.Forward
}

// fragmentOf maps a record to its fragment. counted reports whether a
// record that yields no fragment should count as rejected; the right
// mate of a good pair is not a rejection, its fragment comes from the
// left mate.
func fragmentOf(rec *sam.Record, mode FragmentMode) (frag raster.Fragment, ok, counted bool) {
	if mode == Single {
		return raster.Fragment{Start: rec.Pos, End: rec.End(), Strand: strandOf(rec)}, true, false
	}

	if rec.Flags&sam.Paired == 0 || rec.Flags&sam.MateUnmapped != 0 {
		return frag, false, true
	}
	if rec.MateRef == nil || rec.Ref == nil || rec.MateRef.ID() != rec.Ref.ID() {
		return frag, false, true
	}
	if rec.Flags&sam.ProperPair == 0 {
		return frag, false, true
	}

	switch {
	case rec.TempLen > 0:
	case rec.TempLen == 0:
		return frag, false, true
	default:
		return frag, false, false
	}

	return raster.Fragment{
		Start:  rec.Pos,
		End:    rec.Pos + rec.TempLen,
		Strand: strandOf(rec),
	}, true, false
}
