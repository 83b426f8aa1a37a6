// Package fasta provides indexed access to reference sequences.
package fasta

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/biogo/hts/fai"
)

// ErrUnknownSequence is returned for a name missing from the index
var ErrUnknownSequence = errors.New("sequence not in reference index")

// Reader serves whole sequences from a FASTA file through its .fai index.
// A Reader is safe for concurrent use: reads go through io.ReaderAt.
type Reader struct {
	path  string
	f     *os.File
	idx   fai.Index
	file  *fai.File
	names []string
}

// Open opens path, using path.fai when present and otherwise indexing
// the file in memory
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FASTA file: %w", err)
	}

	idx, err := loadIndex(path, f)
	if err != nil {
		f.Close()
		return nil, err
	}

	r := &Reader{
		path: path,
		f:    f,
		idx:  idx,
		file: fai.NewFile(f, idx),
	}

	// file order
	for name := range idx {
		r.names = append(r.names, name)
	}
	sort.Slice(r.names, func(i, j int) bool {
		return idx[r.names[i]].Start < idx[r.names[j]].Start
	})

	return r, nil
}

func loadIndex(path string, f *os.File) (fai.Index, error) {
	if fi, err := os.Open(path + ".fai"); err == nil {
		defer fi.Close()
		idx, err := fai.ReadFrom(fi)
		if err != nil {
			return nil, fmt.Errorf("failed to read FASTA index %s.fai: %w", path, err)
		}
		return idx, nil
	}

	idx, err := fai.NewIndex(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("failed to index FASTA file: %w", err)
	}
	return idx, nil
}

// Names returns the sequence names in file order
func (r *Reader) Names() []string {
	return append([]string(nil), r.names...)
}

// Length returns the length of a sequence
func (r *Reader) Length(name string) (int, error) {
	rec, ok := r.idx[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrUnknownSequence)
	}
	return rec.Length, nil
}

// Sequence returns the bases of a sequence exactly as stored, case included.
// The buffer is sized from the index and never grows.
func (r *Reader) Sequence(name string) ([]byte, error) {
	rec, ok := r.idx[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownSequence)
	}

	seq, err := r.file.Seq(name)
	if err != nil {
		return nil, fmt.Errorf("failed to seek to %s: %w", name, err)
	}

	buf := make([]byte, rec.Length)
	if _, err := io.ReadFull(seq, buf); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return buf, nil
}

// Close closes the underlying file
func (r *Reader) Close() error {
	return r.f.Close()
}
