// Package bam reads fragments and base calls, one chromosome at a time,
// from BAM files.
package bam

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
)

// ErrUnknownReference is returned for a chromosome missing from the header
var ErrUnknownReference = errors.New("reference not in BAM header")

// Options configures how a BAM file is opened and which reads are used
type Options struct {
	// Decompression goroutines per reader (0 or 1 = single threaded)
	Threads int

	// Reads below this mapping quality are ignored
	MinMapQ int
}

// Reference is a chromosome declared in the BAM header
type Reference struct {
	Name   string
	Length int
}

// Reader reads one BAM file. A Reader is not safe for concurrent use;
// open one Reader per worker.
type Reader struct {
	f    *os.File
	br   *bam.Reader
	idx  *bam.Index
	opts Options
	used bool
}

// Open opens a BAM file. When path.bai (or path with the .bam suffix
// replaced by .bai) exists it is used for per-chromosome random access,
// otherwise each chromosome request scans the file.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open BAM file: %w", err)
	}

	r, err := NewReader(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.f = f

	for _, name := range indexNames(path) {
		fi, err := os.Open(name)
		if err != nil {
			continue
		}
		idx, err := bam.ReadIndex(fi)
		fi.Close()
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to read BAM index %s: %w", name, err)
		}
		r.idx = idx
		break
	}

	return r, nil
}

func indexNames(path string) []string {
	names := []string{path + ".bai"}
	if strings.HasSuffix(path, ".bam") {
		names = append(names, strings.TrimSuffix(path, ".bam")+".bai")
	}
	return names
}

// NewReader reads BAM data from r without an index. Only one chromosome
// iterator can be taken from such a Reader because the stream is not
// rewound.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	threads := opts.Threads
	if threads < 1 {
		threads = 1
	}
	br, err := bam.NewReader(r, threads)
	if err != nil {
		return nil, fmt.Errorf("failed to create BAM reader: %w", err)
	}
	return &Reader{br: br, opts: opts}, nil
}

// Indexed reports whether per-chromosome random access is available
func (r *Reader) Indexed() bool {
	return r.idx != nil
}

// References returns the header references in header order
func (r *Reader) References() []Reference {
	refs := r.br.Header().Refs()
	out := make([]Reference, len(refs))
	for i, ref := range refs {
		out[i] = Reference{Name: ref.Name(), Length: ref.Len()}
	}
	return out
}

// Length returns the declared length of a chromosome
func (r *Reader) Length(chrom string) (int, error) {
	ref, err := r.reference(chrom)
	if err != nil {
		return 0, err
	}
	return ref.Len(), nil
}

func (r *Reader) reference(chrom string) (*sam.Reference, error) {
	for _, ref := range r.br.Header().Refs() {
		if ref.Name() == chrom {
			return ref, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", chrom, ErrUnknownReference)
}

// Close closes the reader and the file it was opened from
func (r *Reader) Close() error {
	err := r.br.Close()
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// recordIterator is satisfied by *bam.Iterator and by scanIterator
type recordIterator interface {
	Next() bool
	Record() *sam.Record
	Error() error
}

// records returns an iterator over the usable reads of one chromosome
func (r *Reader) records(chrom string) (recordIterator, *sam.Reference, error) {
	ref, err := r.reference(chrom)
	if err != nil {
		return nil, nil, err
	}

	var it recordIterator
	if r.idx != nil {
		chunks, err := r.idx.Chunks(ref, 0, ref.Len())
		if err != nil {
			// a reference without reads has no bins or intervals in the index
			if !errors.Is(err, index.ErrNoReference) && !errors.Is(err, index.ErrInvalid) {
				return nil, nil, fmt.Errorf("failed to query BAM index for %s: %w", chrom, err)
			}
			chunks = nil
		}
		it, err = indexIterator(r.br, chunks)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create iterator for %s: %w", chrom, err)
		}
	} else {
		if r.used {
			return nil, nil, fmt.Errorf("unindexed BAM stream already consumed, cannot read %s", chrom)
		}
		it = &scanIterator{br: r.br}
	}
	r.used = true

	return &filterIterator{it: it, ref: ref, minMapQ: r.opts.MinMapQ}, ref, nil
}

func indexIterator(br *bam.Reader, chunks []bgzf.Chunk) (recordIterator, error) {
	if len(chunks) == 0 {
		return emptyIterator{}, nil
	}
	it, err := bam.NewIterator(br, chunks)
	if err != nil {
		return nil, err
	}
	return it, nil
}

type emptyIterator struct{}

func (emptyIterator) Next() bool          { return false }
func (emptyIterator) Record() *sam.Record { return nil }
func (emptyIterator) Error() error        { return nil }

// scanIterator reads a BAM stream sequentially to EOF
type scanIterator struct {
	br  *bam.Reader
	rec *sam.Record
	err error
}

func (s *scanIterator) Next() bool {
	if s.err != nil {
		return false
	}
	rec, err := s.br.Read()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return false
	}
	s.rec = rec
	return true
}

func (s *scanIterator) Record() *sam.Record { return s.rec }
func (s *scanIterator) Error() error        { return s.err }

// skipFlags marks reads that never contribute to an array
const skipFlags = sam.Unmapped | sam.Secondary | sam.Supplementary | sam.QCFail | sam.Duplicate

// filterIterator keeps mapped primary reads of one reference
type filterIterator struct {
	it      recordIterator
	ref     *sam.Reference
	minMapQ int
}

func (f *filterIterator) Next() bool {
	for f.it.Next() {
		rec := f.it.Record()
		if rec.Ref == nil || rec.Ref.ID() != f.ref.ID() {
			continue
		}
		if rec.Flags&skipFlags != 0 || int(rec.MapQ) < f.minMapQ {
			continue
		}
		return true
	}
	return false
}

func (f *filterIterator) Record() *sam.Record { return f.it.Record() }
func (f *filterIterator) Error() error        { return f.it.Error() }
